package ipc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

func newTestFacade(beltSlots int) *Facade {
	sem := NewFakeSemaphoreSet([]int{1, beltSlots, 0, 1})
	shm := NewFakeSharedMemory()
	q := NewFakeMessageQueue(0)
	return New(sem, shm, q)
}

func TestFacade_BeltSemaphoreInvariant(t *testing.T) {
	f := newTestFacade(3)

	require.NoError(t, f.WaitBeltEmpty())
	require.NoError(t, f.PostBeltFull())

	empty, _ := f.Sem.Value(SemEmptySlots)
	full, _ := f.Sem.Value(SemFullSlots)
	require.Equal(t, 3, empty+full)
	require.Equal(t, 1, full)
}

func TestFacade_WaitBlocksUntilPost(t *testing.T) {
	f := newTestFacade(0)

	done := make(chan error, 1)
	go func() { done <- f.WaitBeltFull() }()

	select {
	case <-done:
		t.Fatal("wait returned before a post")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, f.PostBeltFull())
	require.NoError(t, <-done)
}

func TestFacade_ShutdownAbortsWait(t *testing.T) {
	f := newTestFacade(0)

	done := make(chan error, 1)
	go func() { done <- f.WaitBeltFull() }()

	time.Sleep(10 * time.Millisecond)
	f.Shutdown()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrShuttingDown)
	case <-time.After(time.Second):
		t.Fatal("shutdown did not abort the blocked wait")
	}
}

func TestFacade_SendRecvPerRecipientOrdering(t *testing.T) {
	f := newTestFacade(1)

	require.NoError(t, f.Send(101, domain.CommandDeparture))
	require.NoError(t, f.Send(202, domain.CommandEndWork))
	require.NoError(t, f.Send(101, domain.CommandEndWork))

	msg, ok, err := f.RecvNonblocking(101)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.CommandDeparture, msg.CommandID)

	msg, ok, err = f.RecvNonblocking(101)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.CommandEndWork, msg.CommandID)

	_, ok, err = f.RecvNonblocking(101)
	require.NoError(t, err)
	require.False(t, ok)

	msg, ok, err = f.RecvNonblocking(202)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.CommandEndWork, msg.CommandID)
}
