// Package worker implements the producer role: generate a randomly
// typed package and push it onto the belt, gated by the caller's
// session spawn quota.
package worker

import (
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/belt"
	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// Volume per package type, fixed rather than randomized: Type A is the
// smallest parcel class, Type C the largest.
const (
	volumeTypeA = 19.5
	volumeTypeB = 46.2
	volumeTypeC = 99.7
)

// weightRange bounds how heavy a package of one type can be; smaller
// package types are restricted to lighter weights.
type weightRange struct{ min, max float64 }

var weightRanges = map[domain.PackageType]weightRange{
	domain.TypeA: {0.1, 8.0},
	domain.TypeB: {8.0, 16.0},
	domain.TypeC: {16.0, 25.0},
}

// idleBackoff is how long a worker sleeps between quota checks once its
// session has exhausted its process-spawn allowance.
const idleBackoff = 500 * time.Millisecond

// Worker produces packages and pushes them onto the belt under its
// session's spawn quota, identified by selfPID for the quota check.
// thinkTime is the simulated per-package production delay between
// pushes; zero disables it.
type Worker struct {
	facade    *ipc.Facade
	belt      *belt.Belt
	registry  *session.Registry
	selfPID   int32
	workerID  int
	thinkTime time.Duration
	rng       *rand.Rand
	logger    *zap.Logger
}

// New returns a Worker identified by workerID (for logging) and
// selfPID (the session row it spends quota against).
func New(facade *ipc.Facade, b *belt.Belt, reg *session.Registry, selfPID int32, workerID int, thinkTime time.Duration, rng *rand.Rand, logger *zap.Logger) *Worker {
	return &Worker{facade: facade, belt: b, registry: reg, selfPID: selfPID, workerID: workerID, thinkTime: thinkTime, rng: rng, logger: logger}
}

// Run registers with the belt, then generates and pushes packages until
// the system shuts down or the belt is already at its worker-population
// bound, in which case it returns immediately without producing.
func (w *Worker) Run(maxWorkers int32) error {
	if err := w.belt.RegisterWorker(maxWorkers); err != nil {
		w.logger.Error("registration failed, belt full of workers", zap.Error(err))
		return nil
	}
	defer func() {
		if err := w.belt.UnregisterWorker(); err != nil {
			w.logger.Warn("unregister failed", zap.Error(err))
		}
	}()

	w.logger.Info("shift started", zap.Int("worker_id", w.workerID))

	for {
		if w.facade.Cancel.Cancelled() {
			return nil
		}

		spawned, err := w.registry.TrySpawnProcess(w.selfPID)
		if err != nil {
			return err
		}
		if !spawned {
			if w.sleep(idleBackoff) {
				return nil
			}
			continue
		}

		p := w.newPackage()
		if _, err := w.belt.Push(p); err != nil {
			if errors.Is(err, domain.ErrShuttingDown) {
				return nil
			}
			return err
		}
		if err := w.registry.ReportProcessFinished(w.selfPID); err != nil {
			return err
		}

		if w.thinkTime > 0 && w.sleep(w.thinkTime) {
			return nil
		}
	}
}

// newPackage rolls a uniformly random type, then a type-banded weight
// and its fixed volume.
func (w *Worker) newPackage() domain.Package {
	t := domain.PackageType(w.rng.Intn(3))
	rng := weightRanges[t]
	p := domain.Package{
		ProducerPID: w.selfPID,
		LastEditPID: w.selfPID,
		Type:        t,
		Status:      domain.StatusNormal,
		WeightKg:    rng.min + w.rng.Float64()*(rng.max-rng.min),
		VolumeM3:    volumeByType(t),
	}
	p.AppendAudit(domain.ActionCreated|domain.ActorWorker, w.selfPID, time.Now())
	return p
}

func volumeByType(t domain.PackageType) float64 {
	switch t {
	case domain.TypeA:
		return volumeTypeA
	case domain.TypeB:
		return volumeTypeB
	default:
		return volumeTypeC
	}
}

func (w *Worker) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return false
	case <-w.facade.Cancel.Done():
		return true
	}
}
