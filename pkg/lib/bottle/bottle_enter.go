package bottle

import (
	"context"
	"errors"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/config"
	"github.com/arkane-systems/genie/pkg/lib/runner"
)

// Shell opens a shell for the invoking user inside the bottle, starting the
// bottle first if needed.
func (m *Manager) Shell(ctx context.Context) error {
	st, err := m.Prober.Probe(ctx)
	if err != nil {
		return err
	}
	if st.StartedWithinBottle() {
		return lib.Fatal(lib.CodeInvalid, "already inside the bottle; cannot start shell!")
	}

	if st, err = m.ensureBottle(ctx, st); err != nil {
		return err
	}

	m.log().Debug("starting shell")
	return runner.ChainInside(ctx, m.Runner, m.Guard, st.SystemdPid,
		[]string{"machinectl", "shell", "-q", m.Session.UserName + "@.host"},
		"starting shell failed; machinectl shell")
}

// Login opens a login prompt inside the bottle, starting the bottle first
// if needed.
func (m *Manager) Login(ctx context.Context) error {
	st, err := m.Prober.Probe(ctx)
	if err != nil {
		return err
	}
	if st.StartedWithinBottle() {
		return lib.Fatal(lib.CodeInvalid, "already inside the bottle; cannot start login prompt!")
	}

	if st, err = m.ensureBottle(ctx, st); err != nil {
		return err
	}

	m.log().Debug("starting login prompt")
	return runner.ChainInside(ctx, m.Runner, m.Guard, st.SystemdPid,
		[]string{"machinectl", "login", ".host"},
		"starting login failed; machinectl login")
}

// Exec runs argv inside the bottle in the caller's working directory and
// returns its exit code as a silent *lib.ExitError. Inside the bottle it
// simply runs argv.
func (m *Manager) Exec(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return lib.Fatal(lib.CodeInvalid, "no command specified")
	}

	st, err := m.Prober.Probe(ctx)
	if err != nil {
		return err
	}

	if st.StartedWithinBottle() {
		code, err := m.Runner.RunAndWait(ctx, lib.Command{Command: argv[0], Args: argv[1:]})
		if err != nil {
			return err
		}
		return lib.ExitWith(code)
	}

	if st, err = m.ensureBottle(ctx, st); err != nil {
		return err
	}

	shell := []string{"machinectl", "shell", "-q", m.Session.UserName + "@.host", config.HelperPath("runinwsl"), m.Session.Cwd}
	cmd := runner.Inside(st.SystemdPid, append(shell, argv...)...)
	m.log().Debugf("running command %s", runner.CommandLine(cmd))

	var code int
	err = m.Guard.Do(func() error {
		var err error
		code, err = m.Runner.RunAndWait(ctx, cmd)
		return err
	})
	if err != nil {
		return err
	}
	return lib.ExitWith(code)
}

// Initialize starts the bottle if there is none and otherwise does
// nothing.
func (m *Manager) Initialize(ctx context.Context) error {
	st, err := m.Prober.Probe(ctx)
	if err != nil {
		return err
	}

	if st.Status != lib.NoBottlePresent {
		m.log().Debugf("bottle already exists (%s); no need to initialize", st.Status)
		return nil
	}
	return m.Guard.Do(func() error {
		return m.StartBottle(ctx)
	})
}

// Shutdown stops the bottle from outside it.
func (m *Manager) Shutdown(ctx context.Context) error {
	st, err := m.Prober.Probe(ctx)
	if err != nil {
		return err
	}

	switch {
	case st.Status == lib.NoBottlePresent:
		return lib.Fatal(lib.CodeInvalid, "no bottle exists")
	case st.StartedWithinBottle():
		return lib.Fatal(lib.CodeInvalid, "cannot shut down bottle from inside bottle; exiting")
	case st.BottleStartingUp():
		return lib.Fatal(lib.CodeCancelled, "bottle is currently starting; please wait until it is in a stable state")
	case st.BottleClosingDown():
		return lib.Fatal(lib.CodeCancelled, "bottle is currently shutting down; please wait until it is in a stable state")
	}

	return m.Guard.Do(func() error {
		return m.StopBottle(ctx, st.SystemdPid)
	})
}

// ensureBottle brings a bottle that is absent or starting elsewhere to the
// started state and returns a fresh status for it.
func (m *Manager) ensureBottle(ctx context.Context, st lib.BottleStatus) (lib.BottleStatus, error) {
	log := m.log()

	if st.BottleClosingDown() {
		return st, lib.Fatal(lib.CodeCancelled, "bottle is shutting down; cannot proceed")
	}

	var err error
	switch {
	case st.BottleExistsInContext():
	case st.BottleStartingUp():
		if st, err = m.waitForStart(ctx); err != nil {
			return st, err
		}
	default:
		err = m.Guard.Do(func() error {
			return m.StartBottle(ctx)
		})
		if err != nil {
			return st, err
		}
		if st, err = m.Prober.Probe(ctx); err != nil {
			return st, err
		}
		if !st.BottleExistsInContext() {
			return st, errors.New("bottle not found after starting it")
		}
	}

	if st.BottleError() {
		log.Warn("systemd is not in the running state; errors may occur")
	}
	return st, nil
}

// waitForStart waits for a bottle another genie is starting. Like the
// wait for systemd's pid in StartBottle it has no upper bound: the other
// invocation either finishes or leaves the starting flag behind for
// "genie cleanup".
func (m *Manager) waitForStart(ctx context.Context) (lib.BottleStatus, error) {
	m.print("genie: bottle is starting in another process, please wait...")
	defer m.println()

	for {
		if err := m.sleep(ctx, readyPollInterval); err != nil {
			return lib.BottleStatus{}, err
		}

		st, err := m.Prober.Probe(ctx)
		if err != nil {
			return st, err
		}
		m.print(".")

		if st.BottleClosingDown() {
			return st, lib.Fatal(lib.CodeCancelled, "bottle is shutting down; cannot proceed")
		}
		if st.BottleExistsInContext() {
			return st, nil
		}
	}
}
