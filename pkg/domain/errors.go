package domain

import "errors"

// Sentinel errors shared by every role, wrapped with context at each
// call site and compared with errors.Is.
var (
	ErrResourceInit       = errors.New("domain: failed to create or attach shared resources")
	ErrShuttingDown       = errors.New("domain: wait aborted, system is shutting down")
	ErrInterrupted        = errors.New("domain: wait interrupted by signal")
	ErrSessionFull        = errors.New("domain: session registry has no free row")
	ErrDuplicateName      = errors.New("domain: username already has an active session")
	ErrQueueFull          = errors.New("domain: message queue is saturated")
	ErrQuotaExceeded      = errors.New("domain: process spawn quota exceeded")
	ErrInvariantViolation = errors.New("domain: invariant violation")
	ErrVersionMismatch    = errors.New("domain: shared state magic/version mismatch")
)
