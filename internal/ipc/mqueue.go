package ipc

import "github.com/ChuLiYu/warehouse-ipc/pkg/domain"

// MessageQueue is the facade's view of Q: per-recipient addressed
// command delivery.
type MessageQueue interface {
	// Send enqueues msg. Non-blocking; returns ErrQueueFull if saturated.
	Send(msg domain.CommandMessage) error

	// RecvBlocking dequeues the first message addressed to me, waiting
	// until one arrives or cancel fires.
	RecvBlocking(me int64, cancel *CancelToken) (domain.CommandMessage, error)

	// RecvNonblocking dequeues the first message addressed to me if one
	// is already available, without waiting.
	RecvNonblocking(me int64) (domain.CommandMessage, bool, error)

	Close() error
}
