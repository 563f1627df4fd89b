// Command terminal logs in as the operator console and reads commands
// from standard input until exit, quit, or shutdown.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/bootstrap"
	"github.com/ChuLiYu/warehouse-ipc/internal/config"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/internal/terminal"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

const sessionName = "AdminConsole"

var configFile string

func main() {
	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "Operator console for VIP, depart and stop commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := bootstrap.Logger(cfg, "terminal")
	if err != nil {
		return err
	}
	defer logger.Sync()

	facade, err := bootstrap.Attach()
	if err != nil {
		return err
	}
	stop := bootstrap.WatchSignals(facade, logger)
	defer stop()

	pid := int32(os.Getpid())
	reg := session.New(facade)
	if _, err := reg.Login(sessionName, domain.RoleOperator|domain.RoleSysAdmin, 0, pid, 0); err != nil {
		return fmt.Errorf("terminal: login: %w", err)
	}
	defer facade.Detach()
	defer reg.Logout(pid)

	t := terminal.New(facade, reg, pid, logger, os.Stdout)

	logger.Info("logged in", zap.String("name", sessionName), zap.Int32("pid", pid))
	return t.Run(os.Stdin)
}
