// Command beltmonitor logs in as a read-only observer session and
// periodically samples the belt's counters onto a Prometheus scrape
// endpoint.
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
	"github.com/ChuLiYu/warehouse-ipc/internal/metrics"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

const sessionName = "System-Belt"

// sampleInterval is how often the belt's counters are read and pushed
// into the Prometheus gauges.
const sampleInterval = 1 * time.Second

var configFile string

func main() {
	cmd := &cobra.Command{
		Use:   "beltmonitor",
		Short: "Sample belt counters onto a Prometheus scrape endpoint",
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

	logger, err := bootstrap.Logger(cfg, "beltmonitor")
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
	if _, err := reg.Login(sessionName, domain.RoleViewer, 0, pid, 0); err != nil {
		return fmt.Errorf("beltmonitor: login: %w", err)
	}
	defer facade.Detach()
	defer reg.Logout(pid)

	b := belt.New(facade)
	collector := metrics.NewCollector()

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("logged in", zap.String("name", sessionName), zap.Int32("pid", pid))

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stats, err := b.Snapshot()
			if err != nil {
				logger.Warn("snapshot failed", zap.Error(err))
				continue
			}
			collector.Observe(stats, cfg.Belt.Slots)
		case <-facade.Cancel.Done():
			return nil
		}
	}
}
