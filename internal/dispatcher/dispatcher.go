// Package dispatcher implements the belt-to-dock transfer loop: pop a
// package, then retry loading it into the docked truck until it fits,
// the truck departs and a new one docks, or the system shuts down.
package dispatcher

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/belt"
	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// Dispatcher consumes from the belt and loads packages into the docked
// truck under its weight, volume and count admission rules.
type Dispatcher struct {
	facade  *ipc.Facade
	belt    *belt.Belt
	selfPID int32
	backoff time.Duration
	logger  *zap.Logger
}

// New returns a Dispatcher identified by selfPID, retrying admission
// with the given backoff between attempts.
func New(facade *ipc.Facade, b *belt.Belt, selfPID int32, backoff time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{facade: facade, belt: b, selfPID: selfPID, backoff: backoff, logger: logger}
}

// Run pops packages and retry-loads them forever, returning nil on a
// clean shutdown and a non-nil error on anything else; invariant
// violations propagate up so the role can exit rather than corrupt
// shared state further.
func (d *Dispatcher) Run() error {
	for {
		p, err := d.belt.Pop()
		if err != nil {
			if errors.Is(err, domain.ErrShuttingDown) {
				return nil
			}
			return err
		}

		if err := d.retryLoad(&p); err != nil {
			if errors.Is(err, domain.ErrShuttingDown) {
				return nil
			}
			return err
		}
	}
}

// retryLoad admits p into the docked truck or forces a departure and
// retries after a backoff. Both the fits and mismatch branches send
// their DEPARTURE signal while still holding dock.mutex: the mutex may
// only bracket O(1) field updates plus a single non-blocking send, and
// Facade.Send is non-blocking.
func (d *Dispatcher) retryLoad(p *domain.Package) error {
	for {
		if err := d.facade.LockDockMutex(); err != nil {
			return err
		}

		truck := &d.facade.State().DockTruck
		if !truck.IsPresent {
			_ = d.facade.UnlockDockMutex()
			if cancelled := d.sleepBackoff(); cancelled {
				return domain.ErrShuttingDown
			}
			continue
		}

		fitsWeight := truck.FitsWeight(p.WeightKg)
		fitsVolume := truck.FitsVolume(p.VolumeM3)
		fitsCount := truck.FitsCount()
		truckID := int64(truck.ID)

		if fitsWeight && fitsVolume && fitsCount {
			truck.Load(p.WeightKg, p.VolumeM3)
			p.Status |= domain.StatusLoaded
			p.LastEditPID = d.selfPID
			p.AppendAudit(domain.ActionLoadedToTruck|domain.ActorDispatcher, d.selfPID, time.Now())

			if truck.NearCapacity() {
				if err := d.facade.Send(truckID, domain.CommandDeparture); err != nil {
					d.logger.Warn("departure signal dropped", zap.Int64("truck_id", truckID), zap.Error(err))
				}
			}
			_ = d.facade.UnlockDockMutex()
			return nil
		}

		// Mismatch: force the occupant to leave so a truck that can
		// host this package gets a chance to dock.
		if err := d.facade.Send(truckID, domain.CommandDeparture); err != nil {
			d.logger.Warn("forced-departure signal dropped", zap.Int64("truck_id", truckID), zap.Error(err))
		}
		_ = d.facade.UnlockDockMutex()

		if cancelled := d.sleepBackoff(); cancelled {
			return domain.ErrShuttingDown
		}
	}
}

// sleepBackoff sleeps for the configured backoff or returns early (true)
// if the facade is cancelled first.
func (d *Dispatcher) sleepBackoff() bool {
	select {
	case <-time.After(d.backoff):
		return false
	case <-d.facade.Cancel.Done():
		return true
	}
}
