// Package probe works out the lifecycle phase of the bottle from what any
// process can observe: the process table and the flag files.
package probe

import (
	"context"
	"strings"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/runner"
	"github.com/arkane-systems/genie/pkg/lib/state"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "probe")

// Prober computes BottleStatus snapshots.
type Prober struct {
	Table ProcessTable
	Flags *state.Store
	Exec  runner.Executor
}

// NewProber returns a prober over the live process table.
func NewProber(flags *state.Store, exec runner.Executor) *Prober {
	return &Prober{Table: &SystemTable{}, Flags: flags, Exec: exec}
}

// Probe returns the status as of now. The only side effect is running the
// readiness check.
func (p *Prober) Probe(ctx context.Context) (lib.BottleStatus, error) {
	pid, err := p.Table.InitPid()
	if err != nil {
		return lib.BottleStatus{}, err
	}

	st := lib.BottleStatus{Status: lib.NoBottlePresent, SystemdPid: pid}

	switch {
	case pid == 0:
		// no init program at all
	case pid == 1:
		ready, err := Ready(ctx, p.Exec, pid)
		if err != nil {
			return lib.BottleStatus{}, err
		}
		st.Status = lib.InsideBottleNotReady
		if ready {
			st.Status = lib.InsideBottle
		}
	default:
		flags := p.Flags.Flags()
		switch {
		case flags.Starting:
			st.Status = lib.BottleStarting
		case flags.ShuttingDown:
			st.Status = lib.BottleShutdown
		case flags.Running:
			ready, err := Ready(ctx, p.Exec, pid)
			if err != nil {
				return lib.BottleStatus{}, err
			}
			st.Status = lib.BottleStartedNotReady
			if ready {
				st.Status = lib.BottleStarted
			}
		default:
			// systemd outside a bottle genie knows about, e.g. left over
			// from an older genie; treated as no bottle
			logger.Debugf("%s pid %d found without state flags", InitProgram, pid)
		}
	}

	logger.Debugf("status %s, %s pid %d", st.Status, InitProgram, st.SystemdPid)
	return st, nil
}

// Ready asks systemd whether it has reached the running state. For pid 1
// the caller is already inside and the query runs directly; otherwise it
// enters the namespaces of pid.
func Ready(ctx context.Context, exec runner.Executor, pid int) (bool, error) {
	cmd := lib.Command{Command: "systemctl", Args: []string{"is-system-running", "-q"}, Quiet: true}
	if pid != 1 {
		cmd = runner.Inside(pid, "systemctl", "is-system-running", "-q")
		cmd.Quiet = true
	}

	code, err := exec.RunAndWait(ctx, cmd)
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

// State returns systemd's own description of its state, such as
// "starting" or "degraded".
func State(ctx context.Context, exec runner.Executor, pid int) (string, error) {
	cmd := lib.Command{Command: "systemctl", Args: []string{"is-system-running"}, Quiet: true}
	if pid != 1 {
		cmd = runner.Inside(pid, "systemctl", "is-system-running")
		cmd.Quiet = true
	}

	out, err := exec.RunAndWaitForOutput(ctx, cmd)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
