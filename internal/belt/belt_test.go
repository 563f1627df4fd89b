package belt

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

func newTestFacade() *ipc.Facade {
	sem := ipc.NewFakeSemaphoreSet([]int{1, domain.DefaultBeltSlots, 0, 1})
	shm := ipc.NewFakeSharedMemory()
	q := ipc.NewFakeMessageQueue(0)
	return ipc.New(sem, shm, q)
}

func TestBelt_PushPopRoundTrip(t *testing.T) {
	b := New(newTestFacade())

	id, err := b.Push(domain.Package{WeightKg: 10.5, VolumeM3: 0.1})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	got, err := b.Pop()
	require.NoError(t, err)
	require.Equal(t, id, got.ID)
	require.Equal(t, 10.5, got.WeightKg)
	require.Equal(t, 0.1, got.VolumeM3)
}

func TestBelt_IdsAreStrictlyMonotonic(t *testing.T) {
	b := New(newTestFacade())

	var lastID int64
	for i := 0; i < 5; i++ {
		id, err := b.Push(domain.Package{WeightKg: 1})
		require.NoError(t, err)
		require.Greater(t, id, lastID)
		lastID = id
		_, err = b.Pop()
		require.NoError(t, err)
	}
}

func TestBelt_PopZeroesVacatedSlot(t *testing.T) {
	facade := newTestFacade()
	b := New(facade)

	_, err := b.Push(domain.Package{WeightKg: 3, AuditLen: 0})
	require.NoError(t, err)

	st := &facade.State().Belt
	st.Slots[0].AppendAudit(domain.ActionCreated|domain.ActorWorker, 42, time.Now())
	require.Equal(t, uint8(1), st.Slots[0].AuditLen)

	_, err = b.Pop()
	require.NoError(t, err)
	require.Equal(t, domain.Package{}, st.Slots[0])
}

func TestBelt_PushBlocksOnFullBeltUntilPop(t *testing.T) {
	sem := ipc.NewFakeSemaphoreSet([]int{1, 1, 0, 1})
	facade := ipc.New(sem, ipc.NewFakeSharedMemory(), ipc.NewFakeMessageQueue(0))
	b := New(facade)

	_, err := b.Push(domain.Package{WeightKg: 1})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := b.Push(domain.Package{WeightKg: 1})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("second push on a full belt should not complete before a pop")
	case <-time.After(20 * time.Millisecond):
	}

	_, err = b.Pop()
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestBelt_PopBlocksOnEmptyBeltUntilPush(t *testing.T) {
	facade := newTestFacade()
	b := New(facade)

	done := make(chan domain.Package, 1)
	go func() {
		p, _ := b.Pop()
		done <- p
	}()

	select {
	case <-done:
		t.Fatal("pop on an empty belt should not complete before a push")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := b.Push(domain.Package{WeightKg: 2})
	require.NoError(t, err)
	require.Equal(t, 2.0, (<-done).WeightKg)
}

func TestBelt_FIFOOrder(t *testing.T) {
	b := New(newTestFacade())

	for i := 0; i < 4; i++ {
		_, err := b.Push(domain.Package{WeightKg: float64(i)})
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		p, err := b.Pop()
		require.NoError(t, err)
		require.Equal(t, float64(i), p.WeightKg)
	}
}

func TestBelt_RegisterWorkerBoundedByMax(t *testing.T) {
	b := New(newTestFacade())

	require.NoError(t, b.RegisterWorker(2))
	require.NoError(t, b.RegisterWorker(2))
	require.ErrorIs(t, b.RegisterWorker(2), domain.ErrQuotaExceeded)

	require.NoError(t, b.UnregisterWorker())
	require.NoError(t, b.RegisterWorker(2))
}

func TestBelt_ConcurrentPushPopPreservesInvariant(t *testing.T) {
	facade := ipc.New(
		ipc.NewFakeSemaphoreSet([]int{1, domain.DefaultBeltSlots, 0, 1}),
		ipc.NewFakeSharedMemory(),
		ipc.NewFakeMessageQueue(0),
	)
	b := New(facade)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_, err := b.Push(domain.Package{WeightKg: 1})
			require.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			_, err := b.Pop()
			require.NoError(t, err)
		}
	}()
	wg.Wait()

	st := &facade.State().Belt
	require.Equal(t, int32(0), st.Count)
	require.InDelta(t, 0, st.TotalWeightKg, 1e-9)
}
