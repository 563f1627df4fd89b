//go:build linux

package ipc

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// SysvSharedMemory is the real S backed by a SysV shared-memory segment.
type SysvSharedMemory struct {
	bytes []byte
}

var sharedStateSize = int(unsafe.Sizeof(domain.SharedState{}))

// CreateSharedMemory creates (destroying any pre-existing namesake
// segment first, since only one owner holds this key at a time) a
// segment sized sizeof(SharedState) at key and writes the zeroed,
// versioned initial state.
func CreateSharedMemory(key int) (*SysvSharedMemory, error) {
	if existing, err := unix.SysvShmGet(key, sharedStateSize, 0); err == nil {
		if b, attachErr := unix.SysvShmAttach(existing, 0, 0); attachErr == nil {
			_ = unix.SysvShmDetach(b)
		}
		_, _ = unix.SysvShmCtl(existing, unix.IPC_RMID, nil)
	}

	id, err := unix.SysvShmGet(key, sharedStateSize, unix.IPC_CREAT|unix.IPC_EXCL|defaultPerm)
	if err != nil {
		return nil, ErrResourceInit
	}

	b, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, ErrResourceInit
	}

	m := &SysvSharedMemory{bytes: b}
	*m.State() = *domain.NewSharedState()
	return m, nil
}

// AttachSharedMemory attaches a non-owner process to an existing segment
// and verifies its magic/version before trusting the layout.
func AttachSharedMemory(key int) (*SysvSharedMemory, error) {
	id, err := unix.SysvShmGet(key, sharedStateSize, 0)
	if err != nil {
		return nil, ErrResourceInit
	}
	b, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, ErrResourceInit
	}
	m := &SysvSharedMemory{bytes: b}
	st := m.State()
	if st.Magic != domain.SharedMagic || st.Version != domain.SharedVersion {
		_ = unix.SysvShmDetach(b)
		return nil, domain.ErrVersionMismatch
	}
	return m, nil
}

// State returns the SharedState view over the attached segment. The
// returned pointer is only valid for this process's attachment; it must
// never be sent to another process.
func (m *SysvSharedMemory) State() *domain.SharedState {
	return (*domain.SharedState)(unsafe.Pointer(&m.bytes[0]))
}

// Detach unmaps the segment from this process. It does not destroy the
// segment — only the orchestrator's Destroy does that.
func (m *SysvSharedMemory) Detach() error {
	return unix.SysvShmDetach(m.bytes)
}

// DestroySharedMemory removes the segment at key entirely. Only the
// orchestrator calls this, on shutdown.
func DestroySharedMemory(key int) error {
	id, err := unix.SysvShmGet(key, sharedStateSize, 0)
	if err != nil {
		return nil // already gone
	}
	_, err = unix.SysvShmCtl(id, unix.IPC_RMID, nil)
	return err
}
