// Package truck implements the dock-occupancy state machine: a truck
// claims the dock, waits for a load/departure signal, clears the dock,
// and after a transit delay arrives again.
package truck

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// Config bounds the randomized dock capacities and the timing of the
// arrival-poll and transit-delay suspension points.
type Config struct {
	MinLoad, MaxLoad         int32
	MinWeightKg, MaxWeightKg float64
	MinVolumeM3, MaxVolumeM3 float64
	ArrivalPoll              time.Duration
	TransitMin, TransitMax   time.Duration
}

type state int

const (
	stateArriving state = iota
	stateDocked
	stateDeparting
	stateEnRoute
)

// Truck drives one truck process's FSM against the shared dock slot.
type Truck struct {
	facade  *ipc.Facade
	selfPID int32
	cfg     Config
	rng     *rand.Rand
	logger  *zap.Logger
}

// New returns a Truck identified by selfPID, using rng for every
// randomized decision so runs are reproducible when rng is seeded
// deterministically.
func New(facade *ipc.Facade, selfPID int32, cfg Config, rng *rand.Rand, logger *zap.Logger) *Truck {
	return &Truck{facade: facade, selfPID: selfPID, cfg: cfg, rng: rng, logger: logger}
}

// Run drives the FSM until END_WORK, shutdown, or an unrecoverable
// invariant violation. It always attempts to release the dock slot on
// exit, but only if this truck is still the occupant.
func (t *Truck) Run() error {
	defer t.releaseIfOccupant()

	st := stateArriving
	for {
		switch st {
		case stateArriving:
			docked, err := t.tryDock()
			if err != nil {
				return err
			}
			if docked {
				st = stateDocked
				continue
			}
			if t.sleep(t.cfg.ArrivalPoll) {
				return nil
			}

		case stateDocked:
			msg, err := t.facade.RecvBlocking(int64(t.selfPID))
			if err != nil {
				if errors.Is(err, domain.ErrShuttingDown) {
					return nil
				}
				return err
			}
			switch msg.CommandID {
			case domain.CommandDeparture:
				st = stateDeparting
			case domain.CommandEndWork:
				return nil
			}

		case stateDeparting:
			if err := t.depart(); err != nil {
				return err
			}
			st = stateEnRoute

		case stateEnRoute:
			if t.sleep(t.transitDelay()) {
				return nil
			}
			st = stateArriving
		}
	}
}

// tryDock claims the dock slot if it is unoccupied, randomizing this
// cycle's capacities.
func (t *Truck) tryDock() (bool, error) {
	if err := t.facade.LockDockMutex(); err != nil {
		return false, err
	}
	defer t.facade.UnlockDockMutex()

	dt := &t.facade.State().DockTruck
	if dt.IsPresent {
		return false, nil
	}

	*dt = domain.TruckState{
		IsPresent:   true,
		ID:          t.selfPID,
		MaxLoad:     randInt32(t.rng, t.cfg.MinLoad, t.cfg.MaxLoad),
		MaxWeightKg: randFloat64(t.rng, t.cfg.MinWeightKg, t.cfg.MaxWeightKg),
		MaxVolumeM3: randFloat64(t.rng, t.cfg.MinVolumeM3, t.cfg.MaxVolumeM3),
	}
	return true, nil
}

// depart clears the dock slot, but only after verifying this truck is
// still the recorded occupant. A mismatch means another process
// clobbered the slot; that is an invariant violation, not a retry point.
func (t *Truck) depart() error {
	if err := t.facade.LockDockMutex(); err != nil {
		return err
	}
	defer t.facade.UnlockDockMutex()

	dt := &t.facade.State().DockTruck
	if dt.ID != t.selfPID {
		return fmt.Errorf("truck depart: dock occupant id=%d does not match self pid=%d: %w",
			dt.ID, t.selfPID, domain.ErrInvariantViolation)
	}

	t.facade.State().TrucksCompleted++
	dt.Clear()
	return nil
}

// releaseIfOccupant clears the dock slot on the way out if this truck
// is still its occupant — the shutdown path never leaves a dead
// truck's id stuck in the dock.
func (t *Truck) releaseIfOccupant() {
	if err := t.facade.LockDockMutex(); err != nil {
		return
	}
	defer t.facade.UnlockDockMutex()

	dt := &t.facade.State().DockTruck
	if dt.IsPresent && dt.ID == t.selfPID {
		dt.Clear()
	}
}

func (t *Truck) transitDelay() time.Duration {
	lo, hi := t.cfg.TransitMin, t.cfg.TransitMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(t.rng.Int63n(int64(hi-lo)))
}

// sleep waits for d or returns early (true) if the facade is cancelled.
func (t *Truck) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return false
	case <-t.facade.Cancel.Done():
		return true
	}
}

func randInt32(rng *rand.Rand, lo, hi int32) int32 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Int31n(hi-lo+1)
}

func randFloat64(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
