// Package belt implements the bounded producer/consumer conveyor:
// push/pop against the belt.mutex/empty/full triple, plus the
// worker-population counter workers register against.
package belt

import (
	"fmt"
	"time"

	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// Belt is a thin, stateless handle over a Facade's shared belt region.
// It holds no state of its own so any number of processes can each
// construct one against the same Facade.
type Belt struct {
	facade *ipc.Facade
}

// New returns a Belt bound to facade.
func New(facade *ipc.Facade) *Belt {
	return &Belt{facade: facade}
}

// Push admits p onto the belt: wait for a free slot, take the mutex,
// assign a monotonic id, write the slot, advance tail/count/total_weight,
// release, post full. It returns the assigned package id.
func (b *Belt) Push(p domain.Package) (int64, error) {
	if err := b.facade.WaitBeltEmpty(); err != nil {
		return 0, err
	}
	if err := b.facade.LockBeltMutex(); err != nil {
		return 0, err
	}

	st := &b.facade.State().Belt
	if int(st.Count) >= domain.DefaultBeltSlots {
		// The empty-wait is the sole admission gate; observing a full
		// belt after acquiring the mutex means Σ and S have diverged.
		_ = b.facade.UnlockBeltMutex()
		return 0, fmt.Errorf("belt push: %w: count=%d at capacity %d", domain.ErrInvariantViolation, st.Count, domain.DefaultBeltSlots)
	}

	now := time.Now()
	st.TotalPackagesCreated++
	p.ID = st.TotalPackagesCreated
	p.CreatedAtMs = now.UnixMilli()
	p.UpdatedAtMs = p.CreatedAtMs

	st.Slots[st.Tail] = p
	st.Tail = (st.Tail + 1) % int32(domain.DefaultBeltSlots)
	st.Count++
	st.TotalWeightKg += p.WeightKg

	if err := b.facade.UnlockBeltMutex(); err != nil {
		return p.ID, err
	}
	if err := b.facade.PostBeltFull(); err != nil {
		return p.ID, err
	}
	return p.ID, nil
}

// Pop removes and returns the head package: wait for a full belt, take
// the mutex, read and zero the slot, advance head/count/total_weight,
// release, post empty. Zeroing the vacated slot keeps stale audit
// history from leaking into whatever package next occupies it.
func (b *Belt) Pop() (domain.Package, error) {
	if err := b.facade.WaitBeltFull(); err != nil {
		return domain.Package{}, err
	}
	if err := b.facade.LockBeltMutex(); err != nil {
		return domain.Package{}, err
	}

	st := &b.facade.State().Belt
	p := st.Slots[st.Head]
	st.Slots[st.Head].Zero()
	st.Head = (st.Head + 1) % int32(domain.DefaultBeltSlots)
	st.Count--
	st.TotalWeightKg -= p.WeightKg

	if err := b.facade.UnlockBeltMutex(); err != nil {
		return p, err
	}
	if err := b.facade.PostBeltEmpty(); err != nil {
		return p, err
	}
	return p, nil
}

// RegisterWorker increments the worker-population counter, bounded by
// maxWorkers. Returns ErrQuotaExceeded if the population is already at
// the bound.
func (b *Belt) RegisterWorker(maxWorkers int32) error {
	if err := b.facade.LockBeltMutex(); err != nil {
		return err
	}
	defer b.facade.UnlockBeltMutex()

	st := &b.facade.State().Belt
	if st.WorkerPopulation >= maxWorkers {
		return domain.ErrQuotaExceeded
	}
	st.WorkerPopulation++
	return nil
}

// UnregisterWorker decrements the worker-population counter, saturating
// at zero.
func (b *Belt) UnregisterWorker() error {
	if err := b.facade.LockBeltMutex(); err != nil {
		return err
	}
	defer b.facade.UnlockBeltMutex()

	st := &b.facade.State().Belt
	if st.WorkerPopulation > 0 {
		st.WorkerPopulation--
	}
	return nil
}

// Stats is a point-in-time, mutex-consistent snapshot of the belt's
// observable counters, used by the belt monitor (internal/metrics).
type Stats struct {
	Count                int32
	TotalWeightKg        float64
	WorkerPopulation     int32
	TotalPackagesCreated int64
}

// Snapshot reads the belt's counters under belt.mutex.
func (b *Belt) Snapshot() (Stats, error) {
	if err := b.facade.LockBeltMutex(); err != nil {
		return Stats{}, err
	}
	defer b.facade.UnlockBeltMutex()

	st := &b.facade.State().Belt
	return Stats{
		Count:                st.Count,
		TotalWeightKg:        st.TotalWeightKg,
		WorkerPopulation:     st.WorkerPopulation,
		TotalPackagesCreated: st.TotalPackagesCreated,
	}, nil
}
