//go:build linux

// Package integration exercises the real golang.org/x/sys/unix-backed
// facade end to end: actual SysV shared memory, semaphores, and a
// message queue, created and destroyed by the test process itself.
package integration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/warehouse-ipc/internal/belt"
	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// The test keys offset the well-known keys so this suite never collides
// with a real orchestrator run on the same host.
const (
	shmKey = ipc.SharedMemoryKey + 90000
	semKey = ipc.SemaphoreSetKey + 90000
	mqKey  = ipc.MessageQueueKey + 90000
)

func newRealFacade(t *testing.T) *ipc.Facade {
	t.Helper()

	sem, err := ipc.CreateSemaphoreSet(semKey, []int{1, domain.DefaultBeltSlots, 0, 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ipc.DestroySemaphoreSet(semKey) })

	shm, err := ipc.CreateSharedMemory(shmKey)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ipc.DestroySharedMemory(shmKey) })

	q, err := ipc.CreateMessageQueue(mqKey)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ipc.DestroyMessageQueue(mqKey) })

	return ipc.New(sem, shm, q)
}

func TestIntegration_SharedMemoryRoundTrip(t *testing.T) {
	owner := newRealFacade(t)

	owner.State().Belt.TotalPackagesCreated = 42

	attached, err := ipc.AttachSharedMemory(shmKey)
	require.NoError(t, err)
	defer attached.Detach()

	require.Equal(t, int64(42), attached.State().Belt.TotalPackagesCreated)
}

func TestIntegration_AttachRejectsVersionMismatch(t *testing.T) {
	owner := newRealFacade(t)
	owner.State().Version++

	_, err := ipc.AttachSharedMemory(shmKey)
	require.ErrorIs(t, err, domain.ErrVersionMismatch)
}

func TestIntegration_BeltPushPopRoundTripsThroughRealSemaphores(t *testing.T) {
	facade := newRealFacade(t)
	b := belt.New(facade)

	id, err := b.Push(domain.Package{WeightKg: 12.5, VolumeM3: 1.2, Type: domain.TypeA})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	p, err := b.Pop()
	require.NoError(t, err)
	require.Equal(t, id, p.ID)
	require.InDelta(t, 12.5, p.WeightKg, 0.0001)
}

func TestIntegration_MessageQueueDeliversByRecipientTag(t *testing.T) {
	facade := newRealFacade(t)

	require.NoError(t, facade.Send(501, domain.CommandDeparture))
	require.NoError(t, facade.Send(502, domain.CommandEndWork))

	msg, ok, err := facade.RecvNonblocking(502)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.CommandEndWork, msg.CommandID)

	msg, ok, err = facade.RecvNonblocking(501)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.CommandDeparture, msg.CommandID)
}

func TestIntegration_SessionLoginAcrossAttachedProcess(t *testing.T) {
	owner := newRealFacade(t)
	reg := session.New(owner)

	idx, err := reg.Login("Worker_1", domain.RoleViewer, 0, 700, 5)
	require.NoError(t, err)
	require.GreaterOrEqual(t, idx, 0)

	attached, err := ipc.AttachSharedMemory(shmKey)
	require.NoError(t, err)
	defer attached.Detach()

	attachedFacade := ipc.New(owner.Sem, attached, owner.Queue)
	attachedReg := session.New(attachedFacade)

	role, err := attachedReg.CurrentRole(700)
	require.NoError(t, err)
	require.Equal(t, domain.RoleViewer, role)
}

func TestIntegration_ShutdownAbortsABlockedWait(t *testing.T) {
	facade := newRealFacade(t)

	// Drain the full-slots semaphore's initial 0 value by blocking a
	// Pop, then confirm Shutdown aborts it within one poll interval
	// instead of waiting forever for a package that never arrives.
	done := make(chan error, 1)
	go func() {
		_, err := belt.New(facade).Pop()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	facade.Shutdown()

	select {
	case err := <-done:
		require.ErrorIs(t, err, domain.ErrShuttingDown)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked Pop did not observe shutdown")
	}
}
