// Package express implements the priority-bypass lane: packages that
// skip the belt and the belt FIFO entirely, loading straight into the
// docked truck under dock.mutex.
package express

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// Express drives the VIP and batch delivery operations against a
// Facade's shared dock slot.
type Express struct {
	facade  *ipc.Facade
	selfPID int32
	rng     *rand.Rand
	logger  *zap.Logger
}

// New returns an Express identified by selfPID.
func New(facade *ipc.Facade, selfPID int32, rng *rand.Rand, logger *zap.Logger) *Express {
	return &Express{facade: facade, selfPID: selfPID, rng: rng, logger: logger}
}

// DeliverVIPPackage allocates a package (belt-mutex-gated id
// assignment only, no belt insertion) and attempts to load it directly
// into the docked truck. If no truck is present, the VIP order is
// dropped rather than queued, so the express path never stalls.
func (e *Express) DeliverVIPPackage(p domain.Package) (domain.Package, bool, error) {
	id, err := e.nextPackageID()
	if err != nil {
		return domain.Package{}, false, err
	}
	p.ID = id
	p.ProducerPID = e.selfPID
	p.Status |= domain.StatusExpress
	now := time.Now()
	p.CreatedAtMs = now.UnixMilli()
	p.UpdatedAtMs = p.CreatedAtMs

	if err := e.facade.LockDockMutex(); err != nil {
		return p, false, err
	}
	defer e.facade.UnlockDockMutex()

	dt := &e.facade.State().DockTruck
	if !dt.IsPresent {
		e.logger.Warn("VIP package dropped, no truck present", zap.Int64("package_id", p.ID))
		return p, false, nil
	}

	if !dt.FitsWeight(p.WeightKg) || !dt.FitsVolume(p.VolumeM3) || !dt.FitsCount() {
		if err := e.facade.Send(int64(dt.ID), domain.CommandDeparture); err != nil {
			e.logger.Warn("departure signal dropped", zap.Error(err))
		}
		return p, false, nil
	}

	dt.Load(p.WeightKg, p.VolumeM3)
	p.Status |= domain.StatusLoaded
	p.LastEditPID = e.selfPID
	p.AppendAudit(domain.ActionLoadedToTruck|domain.ActorExpress, e.selfPID, now)

	if dt.NearCapacity() {
		if err := e.facade.Send(int64(dt.ID), domain.CommandDeparture); err != nil {
			e.logger.Warn("departure signal dropped", zap.Error(err))
		}
	}
	return p, true, nil
}

// BatchResult reports how many of a requested batch were loaded before
// the truck filled.
type BatchResult struct {
	Requested int
	Loaded    int
	Partial   bool
}

// DeliverExpressBatch tries to load between min and max (inclusive)
// packages of random weight and volume into the current truck under a single
// dock.mutex hold, stopping at the first package that does not fit and
// signalling DEPARTURE.
func (e *Express) DeliverExpressBatch(minCount, maxCount int) (BatchResult, error) {
	if maxCount < minCount {
		return BatchResult{}, fmt.Errorf("express batch: maxCount %d < minCount %d", maxCount, minCount)
	}
	n := minCount
	if maxCount > minCount {
		n += e.rng.Intn(maxCount - minCount + 1)
	}

	if err := e.facade.LockDockMutex(); err != nil {
		return BatchResult{}, err
	}
	defer e.facade.UnlockDockMutex()

	result := BatchResult{Requested: n}

	dt := &e.facade.State().DockTruck
	if !dt.IsPresent {
		return result, nil
	}

	for i := 0; i < n; i++ {
		weightKg, volumeM3 := randomCargo(e.rng)
		if !dt.FitsWeight(weightKg) || !dt.FitsVolume(volumeM3) || !dt.FitsCount() {
			result.Partial = true
			if err := e.facade.Send(int64(dt.ID), domain.CommandDeparture); err != nil {
				e.logger.Warn("departure signal dropped", zap.Error(err))
			}
			break
		}
		dt.Load(weightKg, volumeM3)
		result.Loaded++
	}

	if !result.Partial && dt.NearCapacity() {
		if err := e.facade.Send(int64(dt.ID), domain.CommandDeparture); err != nil {
			e.logger.Warn("departure signal dropped", zap.Error(err))
		}
	}
	return result, nil
}

// nextPackageID assigns a monotonic id using the same counter the
// belt uses, under the belt mutex, without ever writing into a belt
// slot.
func (e *Express) nextPackageID() (int64, error) {
	if err := e.facade.LockBeltMutex(); err != nil {
		return 0, err
	}
	defer e.facade.UnlockBeltMutex()

	st := &e.facade.State().Belt
	st.TotalPackagesCreated++
	return st.TotalPackagesCreated, nil
}

func randomCargo(rng *rand.Rand) (weightKg, volumeM3 float64) {
	return 5 + rng.Float64()*45, 0.1 + rng.Float64()*1.9
}
