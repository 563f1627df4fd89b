// Package domain defines the fixed-layout value types shared across every
// warehouse role process: Package, TruckState, UserSession, SharedState,
// and CommandMessage. Nothing here holds a pointer into another process's
// address space — all cross-process sharing happens through the byte
// layout these types define, not through Go references.
package domain

import "time"

// PackageType is one of the three cargo classes a Package can carry.
type PackageType uint8

const (
	TypeA PackageType = iota
	TypeB
	TypeC
)

// StatusFlags is a bitmask over a Package's lifecycle state.
type StatusFlags uint8

const (
	StatusNormal  StatusFlags = 1 << 0
	StatusExpress StatusFlags = 1 << 1
	StatusLoaded  StatusFlags = 1 << 2
)

// AuditAction composes an event with the actor role that caused it, e.g.
// ActionCreated|ActorWorker. The low byte is the event, the high byte
// the actor.
type AuditAction uint16

const (
	ActionCreated       AuditAction = 1 << 0
	ActionLoadedToTruck AuditAction = 1 << 1
	ActionDropped       AuditAction = 1 << 2

	ActorWorker     AuditAction = 1 << 8
	ActorDispatcher AuditAction = 1 << 9
	ActorExpress    AuditAction = 1 << 10
)

// AuditHistoryLimit caps a Package's audit trail: it saturates silently
// past this many records instead of growing unbounded.
const AuditHistoryLimit = 6

// AuditRecord is one entry in a Package's bounded audit trail.
type AuditRecord struct {
	Action    AuditAction
	ActorPID  int32
	Timestamp int64 // unix millis
}

// Package is the unit of cargo that flows Worker -> Belt -> Dispatcher ->
// Dock -> Truck. It is always copied at each transfer; no slot aliases
// another slot's memory.
type Package struct {
	ID          int64
	ProducerPID int32
	LastEditPID int32
	Type        PackageType
	Status      StatusFlags
	WeightKg    float64
	VolumeM3    float64
	CreatedAtMs int64
	UpdatedAtMs int64
	AuditLen    uint8
	Audit       [AuditHistoryLimit]AuditRecord
}

// AppendAudit appends a record to the package's bounded audit trail.
// Once AuditLen reaches AuditHistoryLimit, further calls are no-ops: the
// log saturates silently rather than growing or panicking.
func (p *Package) AppendAudit(action AuditAction, actorPID int32, now time.Time) {
	p.UpdatedAtMs = now.UnixMilli()
	if int(p.AuditLen) >= AuditHistoryLimit {
		return
	}
	p.Audit[p.AuditLen] = AuditRecord{
		Action:    action,
		ActorPID:  actorPID,
		Timestamp: p.UpdatedAtMs,
	}
	p.AuditLen++
}

// Zero clears a Package to its zero value in place, matching the belt's
// edge policy that a popped slot must not leak audit history into the
// package that next occupies it.
func (p *Package) Zero() {
	*p = Package{}
}
