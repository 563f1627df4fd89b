// Command dispatcher logs in as the system dispatcher session and
// drains the belt into the docked truck for the life of the run.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/belt"
	"github.com/ChuLiYu/warehouse-ipc/internal/bootstrap"
	"github.com/ChuLiYu/warehouse-ipc/internal/config"
	"github.com/ChuLiYu/warehouse-ipc/internal/dispatcher"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

const sessionName = "System-Dispatcher"

var configFile string

func main() {
	cmd := &cobra.Command{
		Use:   "dispatcher",
		Short: "Drain the belt into the docked truck",
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

	logger, err := bootstrap.Logger(cfg, "dispatcher")
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
	if _, err := reg.Login(sessionName, domain.RoleOperator, 0, pid, 0); err != nil {
		return fmt.Errorf("dispatcher: login: %w", err)
	}
	defer facade.Detach()
	defer reg.Logout(pid)

	b := belt.New(facade)
	backoff := time.Duration(cfg.Dispatcher.BackoffMs) * time.Millisecond
	d := dispatcher.New(facade, b, pid, backoff, logger)

	logger.Info("logged in", zap.String("name", sessionName), zap.Int32("pid", pid))
	return d.Run()
}
