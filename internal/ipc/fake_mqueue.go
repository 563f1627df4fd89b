package ipc

import (
	"sync"

	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// FakeMessageQueue is an in-memory MessageQueue for tests: per-recipient
// FIFOs, preserving send order within a recipient.
type FakeMessageQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queues  map[int64][]domain.CommandMessage
	maxSize int
	closed  bool
}

// NewFakeMessageQueue returns an empty fake queue. maxSize <= 0 means
// unbounded.
func NewFakeMessageQueue(maxSize int) *FakeMessageQueue {
	f := &FakeMessageQueue{
		queues:  make(map[int64][]domain.CommandMessage),
		maxSize: maxSize,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *FakeMessageQueue) Send(msg domain.CommandMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.maxSize > 0 {
		total := 0
		for _, q := range f.queues {
			total += len(q)
		}
		if total >= f.maxSize {
			return ErrQueueFull
		}
	}
	f.queues[msg.RecipientTag] = append(f.queues[msg.RecipientTag], msg)
	f.cond.Broadcast()
	return nil
}

func (f *FakeMessageQueue) RecvBlocking(me int64, cancel *CancelToken) (domain.CommandMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queues[me]) == 0 {
		if f.closed {
			return domain.CommandMessage{}, ErrShuttingDown
		}
		if cancel != nil && cancel.Cancelled() {
			return domain.CommandMessage{}, ErrShuttingDown
		}
		waitDone := make(chan struct{})
		if cancel != nil {
			go func() {
				select {
				case <-cancel.Done():
					f.mu.Lock()
					f.cond.Broadcast()
					f.mu.Unlock()
				case <-waitDone:
				}
			}()
		}
		f.cond.Wait()
		close(waitDone)
	}
	return f.pop(me), nil
}

func (f *FakeMessageQueue) RecvNonblocking(me int64) (domain.CommandMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queues[me]) == 0 {
		return domain.CommandMessage{}, false, nil
	}
	return f.pop(me), true, nil
}

func (f *FakeMessageQueue) pop(me int64) domain.CommandMessage {
	q := f.queues[me]
	msg := q[0]
	f.queues[me] = q[1:]
	return msg
}

func (f *FakeMessageQueue) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
	return nil
}
