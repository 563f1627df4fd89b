// Command worker logs in as a producer session and pushes randomly
// typed packages onto the belt until end of shift.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/belt"
	"github.com/ChuLiYu/warehouse-ipc/internal/bootstrap"
	"github.com/ChuLiYu/warehouse-ipc/internal/config"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/internal/worker"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

var configFile string

func main() {
	cmd := &cobra.Command{
		Use:   "worker [id]",
		Short: "Produce packages onto the belt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args)
			if err != nil {
				return err
			}
			return run(id)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseID returns the worker id from the optional positional argument,
// defaulting to 1 when none is given.
func parseID(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("worker: invalid id %q: %w", args[0], err)
	}
	return n, nil
}

func run(id int) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := bootstrap.Logger(cfg, fmt.Sprintf("worker-%d", id))
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

	name := fmt.Sprintf("Worker_%d", id)
	reg := session.New(facade)
	pid := int32(os.Getpid())
	if _, err := reg.Login(name, domain.RoleViewer, 0, pid, 10); err != nil {
		return fmt.Errorf("worker: login %s: %w", name, err)
	}
	defer facade.Detach()
	defer reg.Logout(pid)

	b := belt.New(facade)
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(pid)))
	thinkTime := time.Duration(cfg.Workers.ThinkTimeMs) * time.Millisecond
	w := worker.New(facade, b, reg, pid, id, thinkTime, rng, logger)

	logger.Info("logged in", zap.String("name", name), zap.Int32("pid", pid))
	return w.Run(int32(cfg.Belt.MaxWorkers))
}
