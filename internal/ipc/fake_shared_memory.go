package ipc

import "github.com/ChuLiYu/warehouse-ipc/pkg/domain"

// FakeSharedMemory is an in-process SharedMemory for tests: a single
// SharedState value shared by reference instead of by OS mapping.
type FakeSharedMemory struct {
	state *domain.SharedState
}

// NewFakeSharedMemory returns a fake segment already holding a freshly
// initialized SharedState.
func NewFakeSharedMemory() *FakeSharedMemory {
	return &FakeSharedMemory{state: domain.NewSharedState()}
}

func (f *FakeSharedMemory) State() *domain.SharedState { return f.state }
func (f *FakeSharedMemory) Detach() error              { return nil }
