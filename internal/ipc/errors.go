package ipc

import "github.com/ChuLiYu/warehouse-ipc/pkg/domain"

// Re-exported for callers that only import internal/ipc.
var (
	ErrResourceInit = domain.ErrResourceInit
	ErrShuttingDown = domain.ErrShuttingDown
	ErrInterrupted  = domain.ErrInterrupted
	ErrQueueFull    = domain.ErrQueueFull
)
