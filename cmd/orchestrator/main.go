// Command orchestrator owns the warehouse's shared resources for one
// run: it creates them, spawns every other role binary, and reclaims
// everything on shutdown.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/config"
	"github.com/ChuLiYu/warehouse-ipc/internal/logging"
	"github.com/ChuLiYu/warehouse-ipc/internal/orchestrator"
)

var (
	configFile     string
	binDir         string
	startupStagger time.Duration
	gracePeriod    time.Duration
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Create the warehouse's shared IPC resources and supervise every role process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")
	cmd.Flags().StringVar(&binDir, "bin-dir", defaultBinDir(), "directory containing the role binaries")
	cmd.Flags().DurationVar(&startupStagger, "startup-stagger", 50*time.Millisecond, "delay between spawning successive role processes")
	cmd.Flags().DurationVar(&gracePeriod, "grace-period", 5*time.Second, "time to let children exit cleanly after END_WORK before killing them")

	return cmd
}

func defaultBinDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		ToConsole: cfg.Env.LogToConsole,
		ToFile:    cfg.Env.LogToFile,
		Level:     cfg.Env.LogLevel,
		Role:      "orchestrator",
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	o, err := orchestrator.New(orchestrator.Config{
		BinDir:         binDir,
		TruckCount:     cfg.Trucks.Count,
		WorkerCount:    cfg.Workers.Count,
		StartupStagger: startupStagger,
		GracePeriod:    gracePeriod,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("warehouse resources created",
		zap.String("bin_dir", binDir),
		zap.Int("truck_count", cfg.Trucks.Count),
		zap.Int("worker_count", cfg.Workers.Count),
	)
	return o.Run(ctx)
}
