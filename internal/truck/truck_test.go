package truck

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

func testConfig() Config {
	return Config{
		MinLoad: 5, MaxLoad: 20,
		MinWeightKg: 50, MaxWeightKg: 200,
		MinVolumeM3: 100, MaxVolumeM3: 400,
		ArrivalPoll: time.Millisecond,
		TransitMin:  time.Millisecond,
		TransitMax:  2 * time.Millisecond,
	}
}

func newTestFacade() *ipc.Facade {
	sem := ipc.NewFakeSemaphoreSet([]int{1, domain.DefaultBeltSlots, 0, 1})
	shm := ipc.NewFakeSharedMemory()
	q := ipc.NewFakeMessageQueue(0)
	return ipc.New(sem, shm, q)
}

func TestTruck_DocksWhenSlotIsFree(t *testing.T) {
	facade := newTestFacade()
	tr := New(facade, 101, testConfig(), rand.New(rand.NewSource(1)), zap.NewNop())

	docked, err := tr.tryDock()
	require.NoError(t, err)
	require.True(t, docked)

	dt := facade.State().DockTruck
	require.True(t, dt.IsPresent)
	require.Equal(t, int32(101), dt.ID)
	require.GreaterOrEqual(t, dt.MaxLoad, int32(5))
	require.LessOrEqual(t, dt.MaxLoad, int32(20))
}

func TestTruck_DoesNotDockWhenOccupied(t *testing.T) {
	facade := newTestFacade()
	facade.State().DockTruck = domain.TruckState{IsPresent: true, ID: 999}

	tr := New(facade, 101, testConfig(), rand.New(rand.NewSource(1)), zap.NewNop())
	docked, err := tr.tryDock()
	require.NoError(t, err)
	require.False(t, docked)
}

func TestTruck_DepartClearsDockOnIdentityMatch(t *testing.T) {
	facade := newTestFacade()
	facade.State().DockTruck = domain.TruckState{IsPresent: true, ID: 101}

	tr := New(facade, 101, testConfig(), rand.New(rand.NewSource(1)), zap.NewNop())
	require.NoError(t, tr.depart())

	dt := facade.State().DockTruck
	require.False(t, dt.IsPresent)
	require.Equal(t, int64(1), facade.State().TrucksCompleted)
}

func TestTruck_DepartRejectsIdentityMismatch(t *testing.T) {
	facade := newTestFacade()
	facade.State().DockTruck = domain.TruckState{IsPresent: true, ID: 999}

	tr := New(facade, 101, testConfig(), rand.New(rand.NewSource(1)), zap.NewNop())
	err := tr.depart()
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestTruck_ReleaseIfOccupantClearsOnlyOwnSlot(t *testing.T) {
	facade := newTestFacade()
	facade.State().DockTruck = domain.TruckState{IsPresent: true, ID: 101}

	tr := New(facade, 101, testConfig(), rand.New(rand.NewSource(1)), zap.NewNop())
	tr.releaseIfOccupant()
	require.False(t, facade.State().DockTruck.IsPresent)

	facade.State().DockTruck = domain.TruckState{IsPresent: true, ID: 999}
	tr.releaseIfOccupant()
	require.True(t, facade.State().DockTruck.IsPresent)
}

func TestTruck_RunDocksThenDepartsOnSignal(t *testing.T) {
	facade := newTestFacade()
	tr := New(facade, 202, testConfig(), rand.New(rand.NewSource(1)), zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- tr.Run() }()

	require.Eventually(t, func() bool {
		dt := facade.State().DockTruck
		return dt.IsPresent && dt.ID == 202
	}, time.Second, time.Millisecond)

	require.NoError(t, facade.Send(202, domain.CommandDeparture))

	require.Eventually(t, func() bool {
		return facade.State().TrucksCompleted == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, facade.Send(202, domain.CommandEndWork))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("truck did not exit on END_WORK")
	}
}
