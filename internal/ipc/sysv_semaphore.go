//go:build linux

package ipc

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval is how often a blocked Wait rechecks the cancel token. A
// real blocking semop(2) call cannot observe an in-process cancellation
// token, so Wait polls with IPC_NOWAIT instead of parking in the kernel
// — this is what gives a blocked wait a restart-on-interrupt, abort-on-
// shutdown contract without OS signal-mask juggling.
const pollInterval = 5 * time.Millisecond

// SysvSemaphoreSet is the real Σ backed by a SysV semaphore set.
type SysvSemaphoreSet struct {
	id int
}

// CreateSemaphoreSet creates (or re-creates, destroying any pre-existing
// namesake set first) the semaphore set at key with nsems semaphores,
// then initializes each to the value given in initial.
func CreateSemaphoreSet(key int, initial []int) (*SysvSemaphoreSet, error) {
	// Destroy any pre-existing set owned by a previous run.
	if existing, err := semget(key, len(initial), 0); err == nil {
		_ = semctlRemove(existing)
	}

	id, err := semget(key, len(initial), ipcCreat|ipcExcl|defaultPerm)
	if err != nil {
		return nil, ErrResourceInit
	}
	for i, v := range initial {
		if err := semctlSetval(id, i, v); err != nil {
			_ = semctlRemove(id)
			return nil, ErrResourceInit
		}
	}
	return &SysvSemaphoreSet{id: id}, nil
}

// AttachSemaphoreSet attaches a non-owner process to an existing set.
func AttachSemaphoreSet(key int) (*SysvSemaphoreSet, error) {
	id, err := semget(key, SemTotal, 0)
	if err != nil {
		return nil, ErrResourceInit
	}
	return &SysvSemaphoreSet{id: id}, nil
}

// DestroySemaphoreSet removes the set at key entirely. Only the
// orchestrator calls this, on shutdown.
func DestroySemaphoreSet(key int) error {
	id, err := semget(key, SemTotal, 0)
	if err != nil {
		return nil // already gone
	}
	return semctlRemove(id)
}

func (s *SysvSemaphoreSet) Wait(idx int, cancel *CancelToken) error {
	op := []sembuf{{SemNum: uint16(idx), SemOp: -1, SemFlg: ipcNoWait}}
	for {
		if cancel != nil && cancel.Cancelled() {
			return ErrShuttingDown
		}
		err := semop(s.id, op)
		if err == nil {
			return nil
		}
		if err == unix.EAGAIN {
			time.Sleep(pollInterval)
			continue
		}
		if err == unix.EINTR {
			continue // restart-on-interrupt
		}
		return err
	}
}

func (s *SysvSemaphoreSet) Post(idx int) error {
	op := []sembuf{{SemNum: uint16(idx), SemOp: 1, SemFlg: 0}}
	for {
		err := semop(s.id, op)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func (s *SysvSemaphoreSet) Value(idx int) (int, error) {
	return semctlGetval(s.id, idx)
}

func (s *SysvSemaphoreSet) Close() error {
	return semctlRemove(s.id)
}
