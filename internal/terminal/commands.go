package terminal

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// errExitRequested is returned by the exit/quit commands to tell Run
// to stop its poll loop without touching shared state.
var errExitRequested = fmt.Errorf("terminal: exit requested")

// commandSpec is one row of the static command table: the role mask
// required to invoke it and the handler to run. role is an OR of the
// roles that may invoke the command (Dispatch checks Any, not Has); a
// zero role mask authorizes any session.
type commandSpec struct {
	role domain.RoleMask
	run  func(t *Terminal, args []string) (string, error)
}

var commandTable = map[string]commandSpec{
	"vip":    {role: domain.RoleOperator | domain.RoleSysAdmin, run: (*Terminal).cmdVIP},
	"depart": {role: domain.RoleOperator | domain.RoleSysAdmin, run: (*Terminal).cmdDepart},
	"stop":   {role: domain.RoleSysAdmin, run: (*Terminal).cmdStop},
	"help":   {role: 0, run: (*Terminal).cmdHelp},
	"exit":   {role: 0, run: (*Terminal).cmdExit},
	"quit":   {role: 0, run: (*Terminal).cmdExit},
}

func (t *Terminal) cmdVIP(_ []string) (string, error) {
	pid, _, found, err := t.registry.FindByUsername("System-Express")
	if err != nil {
		return "", err
	}
	if !found {
		return "System-Express is offline", nil
	}
	if err := t.facade.Send(int64(pid), domain.CommandExpressLoad); err != nil {
		return "", err
	}
	return fmt.Sprintf("EXPRESS_LOAD sent to System-Express (pid %d)", pid), nil
}

func (t *Terminal) cmdDepart(_ []string) (string, error) {
	if err := t.facade.LockDockMutex(); err != nil {
		return "", err
	}
	defer t.facade.UnlockDockMutex()

	dt := t.facade.State().DockTruck
	if !dt.IsPresent {
		return "no truck docked", nil
	}
	if err := t.facade.Send(int64(dt.ID), domain.CommandDeparture); err != nil {
		return "", err
	}
	return fmt.Sprintf("DEPARTURE sent to truck pid %d", dt.ID), nil
}

func (t *Terminal) cmdStop(_ []string) (string, error) {
	pids, err := t.registry.ActivePIDs()
	if err != nil {
		return "", err
	}
	for _, pid := range pids {
		if err := t.facade.Send(int64(pid), domain.CommandEndWork); err != nil {
			t.logger.Warn("END_WORK delivery failed", zap.Int32("pid", pid), zap.Error(err))
		}
	}
	t.facade.State().Running = false
	return fmt.Sprintf("stop broadcast to %d sessions", len(pids)), nil
}

func (t *Terminal) cmdHelp(_ []string) (string, error) {
	return "commands: vip, depart, stop, help, exit, quit", nil
}

func (t *Terminal) cmdExit(_ []string) (string, error) {
	return "bye", errExitRequested
}
