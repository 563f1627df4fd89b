package ipc

import (
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// Facade bundles the three shared primitives (Σ, S, Q) behind named
// operations, so every role constructs one Facade and never touches a
// semaphore index or a raw queue call directly.
type Facade struct {
	Sem    SemaphoreSet
	Shm    SharedMemory
	Queue  MessageQueue
	Cancel *CancelToken
}

// New assembles a Facade from already-created or already-attached
// primitives. Role processes obtain those via Create*/Attach* in
// sysv_*.go (real) or ipc.NewFake* (tests).
func New(sem SemaphoreSet, shm SharedMemory, queue MessageQueue) *Facade {
	return &Facade{Sem: sem, Shm: shm, Queue: queue, Cancel: NewCancelToken()}
}

// State returns the attached SharedState.
func (f *Facade) State() *domain.SharedState {
	return f.Shm.State()
}

// WaitBeltEmpty/PostBeltEmpty/... are thin, named wrappers over the raw
// semaphore indices so call sites read like a table of operations
// instead of magic numbers.
func (f *Facade) WaitBeltEmpty() error { return f.Sem.Wait(SemEmptySlots, f.Cancel) }
func (f *Facade) PostBeltEmpty() error { return f.Sem.Post(SemEmptySlots) }
func (f *Facade) WaitBeltFull() error  { return f.Sem.Wait(SemFullSlots, f.Cancel) }
func (f *Facade) PostBeltFull() error  { return f.Sem.Post(SemFullSlots) }

func (f *Facade) LockBeltMutex() error   { return f.Sem.Wait(SemBeltMutex, nil) }
func (f *Facade) UnlockBeltMutex() error { return f.Sem.Post(SemBeltMutex) }

func (f *Facade) LockDockMutex() error   { return f.Sem.Wait(SemDockMutex, nil) }
func (f *Facade) UnlockDockMutex() error { return f.Sem.Post(SemDockMutex) }

// Send enqueues a command addressed to a recipient tag.
func (f *Facade) Send(to int64, cmd domain.CommandID) error {
	return f.Queue.Send(domain.CommandMessage{RecipientTag: to, CommandID: cmd})
}

// RecvBlocking waits for the next message addressed to me.
func (f *Facade) RecvBlocking(me int64) (domain.CommandMessage, error) {
	return f.Queue.RecvBlocking(me, f.Cancel)
}

// RecvNonblocking polls once for a message addressed to me.
func (f *Facade) RecvNonblocking(me int64) (domain.CommandMessage, bool, error) {
	return f.Queue.RecvNonblocking(me)
}

// Shutdown cancels every blocking wait this facade's holder is parked
// in. Idempotent.
func (f *Facade) Shutdown() {
	f.Cancel.Cancel()
}

// Detach releases this process's local attachment to the shared
// resources without destroying them. Every role calls this on exit;
// only the orchestrator additionally destroys them.
func (f *Facade) Detach() error {
	return f.Shm.Detach()
}
