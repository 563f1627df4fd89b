// Package ipc is the facade over the three shared primitives the
// warehouse roles coordinate through: a SysV shared-memory segment, a
// SysV semaphore set, and a SysV message queue.
package ipc

// Keys are the fixed integers every role discovers the shared resources by.
const (
	SharedMemoryKey = 1234
	SemaphoreSetKey = 5678
	MessageQueueKey = 9012
)

// Semaphore indices within the set.
const (
	SemBeltMutex = iota
	SemEmptySlots
	SemFullSlots
	SemDockMutex
	SemTotal
)

// Permission bits restricting the resources to their creator's user.
const defaultPerm = 0o600
