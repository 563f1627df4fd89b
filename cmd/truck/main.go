// Command truck logs in as one truck session and drives the dock
// occupancy FSM for the life of the run.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/bootstrap"
	"github.com/ChuLiYu/warehouse-ipc/internal/config"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/internal/truck"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

var configFile string

func main() {
	cmd := &cobra.Command{
		Use:   "truck [id]",
		Short: "Drive one truck through the dock occupancy cycle",
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

// parseID returns the truck id from the optional positional argument,
// defaulting to 1 when none is given.
func parseID(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("truck: invalid id %q: %w", args[0], err)
	}
	return n, nil
}

func run(id int) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger, err := bootstrap.Logger(cfg, fmt.Sprintf("truck-%d", id))
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

	name := fmt.Sprintf("Truck_%d", id)
	pid := int32(os.Getpid())
	reg := session.New(facade)
	if _, err := reg.Login(name, domain.RoleViewer, 0, pid, 0); err != nil {
		return fmt.Errorf("truck: login %s: %w", name, err)
	}
	defer facade.Detach()
	defer reg.Logout(pid)

	tc := cfg.Trucks
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(pid)))
	t := truck.New(facade, pid, truck.Config{
		MinLoad:     tc.MinLoad,
		MaxLoad:     tc.MaxLoad,
		MinWeightKg: tc.MinWeightKg,
		MaxWeightKg: tc.MaxWeightKg,
		MinVolumeM3: tc.MinVolumeM3,
		MaxVolumeM3: tc.MaxVolumeM3,
		ArrivalPoll: time.Duration(tc.ArrivalPollMs) * time.Millisecond,
		TransitMin:  time.Duration(tc.TransitMinMs) * time.Millisecond,
		TransitMax:  time.Duration(tc.TransitMaxMs) * time.Millisecond,
	}, rng, logger)

	logger.Info("logged in", zap.String("name", name), zap.Int32("pid", pid))
	return t.Run()
}
