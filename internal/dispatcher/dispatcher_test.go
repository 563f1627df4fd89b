package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/belt"
	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

func newTestRig() (*ipc.Facade, *belt.Belt) {
	sem := ipc.NewFakeSemaphoreSet([]int{1, domain.DefaultBeltSlots, 0, 1})
	facade := ipc.New(sem, ipc.NewFakeSharedMemory(), ipc.NewFakeMessageQueue(0))
	return facade, belt.New(facade)
}

func TestDispatcher_RunLoadsPoppedPackageAndStops(t *testing.T) {
	facade, b := newTestRig()
	facade.State().DockTruck = domain.TruckState{IsPresent: true, ID: 900, MaxLoad: 20, MaxWeightKg: 200, MaxVolumeM3: 20}

	_, err := b.Push(domain.Package{WeightKg: 10, VolumeM3: 1})
	require.NoError(t, err)

	d := New(facade, b, 100, time.Millisecond, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- d.Run() }()

	require.Eventually(t, func() bool {
		return facade.State().DockTruck.CurrentLoad == 1
	}, time.Second, time.Millisecond)

	facade.Shutdown()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on shutdown")
	}
}

func TestDispatcher_SignalsDepartureWhenNearCapacity(t *testing.T) {
	facade, b := newTestRig()
	facade.State().DockTruck = domain.TruckState{IsPresent: true, ID: 900, MaxLoad: 1, MaxWeightKg: 200, MaxVolumeM3: 20}

	_, err := b.Push(domain.Package{WeightKg: 10, VolumeM3: 1})
	require.NoError(t, err)

	d := New(facade, b, 100, time.Millisecond, zap.NewNop())
	p, err := b.Pop()
	require.NoError(t, err)
	require.NoError(t, d.retryLoad(&p))

	msg, ok, err := facade.RecvNonblocking(900)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.CommandDeparture, msg.CommandID)
}

func TestDispatcher_MismatchForcesDepartureAndRetries(t *testing.T) {
	facade, b := newTestRig()
	facade.State().DockTruck = domain.TruckState{IsPresent: true, ID: 900, MaxLoad: 20, MaxWeightKg: 5, MaxVolumeM3: 20}

	d := New(facade, b, 100, time.Millisecond, zap.NewNop())
	done := make(chan error, 1)
	p := domain.Package{WeightKg: 999, VolumeM3: 1}
	go func() { done <- d.retryLoad(&p) }()

	msg, ok := drainDeparture(t, facade, 900)
	require.True(t, ok)
	require.Equal(t, domain.CommandDeparture, msg.CommandID)

	dt := facade.State().DockTruck
	require.Equal(t, int32(0), dt.CurrentLoad)
	require.Zero(t, dt.CurrentWeightKg)

	facade.Shutdown()
	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrShuttingDown)
	case <-time.After(2 * time.Second):
		t.Fatal("retryLoad did not observe shutdown")
	}
}

func drainDeparture(t *testing.T, facade *ipc.Facade, pid int64) (domain.CommandMessage, bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		msg, ok, err := facade.RecvNonblocking(pid)
		require.NoError(t, err)
		if ok {
			return msg, true
		}
		time.Sleep(time.Millisecond)
	}
	return domain.CommandMessage{}, false
}
