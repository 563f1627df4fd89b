package ipc

import "github.com/ChuLiYu/warehouse-ipc/pkg/domain"

// SharedMemory is the facade's view of S: a region sized exactly
// sizeof(SharedState), mapped once per process.
type SharedMemory interface {
	State() *domain.SharedState
	Detach() error
}
