// Package session implements the multi-process session registry:
// login/logout, process-spawn quota, and role lookup over the shared
// users table.
package session

import (
	"fmt"

	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// Registry is a thin handle over a Facade's shared users table. A
// dedicated registry mutex would be preferable, but the belt mutex is
// reused here for compatibility with every other component that
// serializes belt-adjacent shared state the same way.
type Registry struct {
	facade *ipc.Facade
}

// New returns a Registry bound to facade.
func New(facade *ipc.Facade) *Registry {
	return &Registry{facade: facade}
}

// Login scans for a duplicate active username, then for the first
// inactive row, and claims it for pid. Returns the row index on
// success, ErrDuplicateName if the name is already active, or
// ErrSessionFull if no row is free.
func (r *Registry) Login(name string, role domain.RoleMask, orgID, pid, maxProcs int32) (int, error) {
	if err := r.facade.LockBeltMutex(); err != nil {
		return 0, err
	}
	defer r.facade.UnlockBeltMutex()

	st := r.facade.State()
	users := &st.Users

	freeIdx := -1
	for i := range users {
		u := &users[i]
		if u.Active {
			if u.GetUsername() == name {
				return 0, fmt.Errorf("session login %q: %w", name, domain.ErrDuplicateName)
			}
			continue
		}
		if freeIdx == -1 {
			freeIdx = i
		}
	}

	if freeIdx == -1 {
		return 0, fmt.Errorf("session login %q: %w", name, domain.ErrSessionFull)
	}

	users[freeIdx] = domain.UserSession{}
	users[freeIdx].SetUsername(name)
	users[freeIdx].Active = true
	users[freeIdx].PID = pid
	users[freeIdx].Role = role
	users[freeIdx].OrgID = orgID
	users[freeIdx].MaxProcs = maxProcs
	users[freeIdx].CurProcs = 0

	return freeIdx, nil
}

// Logout clears pid's row, if any. It is a no-op if pid has no active
// session.
func (r *Registry) Logout(pid int32) error {
	if err := r.facade.LockBeltMutex(); err != nil {
		return err
	}
	defer r.facade.UnlockBeltMutex()

	st := r.facade.State()
	for i := range st.Users {
		u := &st.Users[i]
		if u.Active && u.PID == pid {
			u.Clear()
			return nil
		}
	}
	return nil
}

// TrySpawnProcess atomically checks pid's quota and, if CurProcs is
// below MaxProcs, increments it and returns true.
func (r *Registry) TrySpawnProcess(pid int32) (bool, error) {
	if err := r.facade.LockBeltMutex(); err != nil {
		return false, err
	}
	defer r.facade.UnlockBeltMutex()

	u := findByPID(&r.facade.State().Users, pid)
	if u == nil || !u.Active {
		return false, nil
	}
	if u.CurProcs >= u.MaxProcs {
		return false, nil
	}
	u.CurProcs++
	return true, nil
}

// ReportProcessFinished saturating-decrements pid's CurProcs at zero.
func (r *Registry) ReportProcessFinished(pid int32) error {
	if err := r.facade.LockBeltMutex(); err != nil {
		return err
	}
	defer r.facade.UnlockBeltMutex()

	u := findByPID(&r.facade.State().Users, pid)
	if u == nil {
		return nil
	}
	if u.CurProcs > 0 {
		u.CurProcs--
	}
	return nil
}

// CurrentRole returns pid's role mask, or zero if pid has no active session.
func (r *Registry) CurrentRole(pid int32) (domain.RoleMask, error) {
	if err := r.facade.LockBeltMutex(); err != nil {
		return 0, err
	}
	defer r.facade.UnlockBeltMutex()

	u := findByPID(&r.facade.State().Users, pid)
	if u == nil || !u.Active {
		return 0, nil
	}
	return u.Role, nil
}

// SessionIndex returns pid's row index and true, or false if pid has
// no active session.
func (r *Registry) SessionIndex(pid int32) (int, bool, error) {
	if err := r.facade.LockBeltMutex(); err != nil {
		return 0, false, err
	}
	defer r.facade.UnlockBeltMutex()

	st := r.facade.State()
	for i := range st.Users {
		u := &st.Users[i]
		if u.Active && u.PID == pid {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// ActivePIDs returns the pid of every active session, used by the
// orchestrator and terminal to broadcast END_WORK/commands.
func (r *Registry) ActivePIDs() ([]int32, error) {
	if err := r.facade.LockBeltMutex(); err != nil {
		return nil, err
	}
	defer r.facade.UnlockBeltMutex()

	st := r.facade.State()
	var pids []int32
	for i := range st.Users {
		if st.Users[i].Active {
			pids = append(pids, st.Users[i].PID)
		}
	}
	return pids, nil
}

// FindByUsername returns the pid and role of the active session named
// name, or false if none is active under that name. Used by the
// terminal to resolve the "System-Express" VIP target.
func (r *Registry) FindByUsername(name string) (pid int32, role domain.RoleMask, found bool, err error) {
	if err := r.facade.LockBeltMutex(); err != nil {
		return 0, 0, false, err
	}
	defer r.facade.UnlockBeltMutex()

	st := r.facade.State()
	for i := range st.Users {
		u := &st.Users[i]
		if u.Active && u.GetUsername() == name {
			return u.PID, u.Role, true, nil
		}
	}
	return 0, 0, false, nil
}

func findByPID(users *[domain.DefaultSessionRows]domain.UserSession, pid int32) *domain.UserSession {
	for i := range users {
		if users[i].PID == pid {
			return &users[i]
		}
	}
	return nil
}
