// Command express logs in as the system express session and services
// VIP and batch delivery requests sent to its own pid.
package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/bootstrap"
	"github.com/ChuLiYu/warehouse-ipc/internal/config"
	"github.com/ChuLiYu/warehouse-ipc/internal/express"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

const sessionName = "System-Express"

// batchMin/batchMax bound how many packages one EXPRESS_LOAD signal
// loads, mirroring the randomized count the terminal's vip command
// cannot itself predict.
const (
	batchMin = 3
	batchMax = 5
)

var configFile string

func main() {
	cmd := &cobra.Command{
		Use:   "express",
		Short: "Service VIP and batch delivery requests against the docked truck",
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

	logger, err := bootstrap.Logger(cfg, "express")
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
		return fmt.Errorf("express: login: %w", err)
	}
	defer facade.Detach()
	defer reg.Logout(pid)

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(pid)))
	e := express.New(facade, pid, rng, logger)

	logger.Info("logged in", zap.String("name", sessionName), zap.Int32("pid", pid))

	for {
		msg, err := facade.RecvBlocking(int64(pid))
		if err != nil {
			if errors.Is(err, domain.ErrShuttingDown) {
				return nil
			}
			return err
		}

		switch msg.CommandID {
		case domain.CommandExpressLoad:
			result, err := e.DeliverExpressBatch(batchMin, batchMax)
			if err != nil {
				logger.Error("batch delivery failed", zap.Error(err))
				continue
			}
			logger.Info("batch delivery finished",
				zap.Int("requested", result.Requested),
				zap.Int("loaded", result.Loaded),
				zap.Bool("partial", result.Partial),
			)
		case domain.CommandEndWork:
			return nil
		}
	}
}
