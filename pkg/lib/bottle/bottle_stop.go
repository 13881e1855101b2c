package bottle

import (
	"context"
	"errors"
	"fmt"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/runner"
	"github.com/arkane-systems/genie/pkg/lib/system"
	"github.com/hashicorp/go-multierror"
)

// StopBottle powers off the systemd with external pid and undoes the host
// changes made by StartBottle, in reverse order. The caller must hold the
// privilege guard.
func (m *Manager) StopBottle(ctx context.Context, pid int) error {
	log := m.log()

	if err := m.Store.SetShuttingDown(true); err != nil {
		return fmt.Errorf("setting shutdown flag: %w", err)
	}
	if err := m.Store.SetRunning(false); err != nil {
		log.WithError(err).Warn("could not clear running flag")
	}

	log.Debug("running systemctl poweroff within bottle")
	err := runner.ChainInside(ctx, m.Runner, m.Guard, pid, []string{"systemctl", "poweroff"},
		"running command failed; nsenter systemctl poweroff")
	if err != nil {
		return err
	}

	if err := m.waitForExit(ctx, pid); err != nil {
		return err
	}

	if err := m.teardown(ctx); err != nil {
		return err
	}

	if err := m.Store.RemovePid(); err != nil {
		log.WithError(err).Warn("could not remove systemd pid file")
	}
	if err := m.Store.SetShuttingDown(false); err != nil {
		return fmt.Errorf("clearing shutdown flag: %w", err)
	}
	return nil
}

// waitForExit polls for up to systemd-timeout seconds for pid to exit.
// Timing out is a warning: the unmounts that follow proceed regardless.
func (m *Manager) waitForExit(ctx context.Context, pid int) error {
	m.print("Waiting for systemd to exit...")
	defer m.println()

	for i := 0; ; i++ {
		alive, err := m.Prober.Table.Alive(pid)
		if err != nil {
			return fmt.Errorf("checking systemd pid %d: %w", pid, err)
		}
		if !alive {
			return nil
		}
		if i >= m.Config.SystemdTimeout {
			m.log().Warnf("systemd did not exit after %d seconds; this may indicate a systemd configuration error; attempting to continue",
				m.Config.SystemdTimeout)
			return nil
		}

		if err := m.sleep(ctx, readyPollInterval); err != nil {
			return err
		}
		m.print(".")
	}
}

// teardown reverses the optional start steps. Everything but unmounting
// the hostname is best effort.
func (m *Manager) teardown(ctx context.Context) error {
	log := m.log()
	var errs *multierror.Error

	if m.Config.AppArmorNamespace && m.Host.AppArmorAvailable() {
		log.Debugf("deleting AppArmor namespace %s", system.AppArmorNamespace(m.distro()))
		if err := m.Host.DeleteAppArmorNamespace(m.distro()); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("deleting AppArmor namespace: %w", err))
		}
	}

	if err := m.remountBinfmt(ctx); err != nil {
		// a mount that cannot be spawned is still fatal
		var exitErr *lib.ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		errs = multierror.Append(errs, err)
	}

	if m.Config.ResolvedStub {
		if err := m.Host.UnconfigureResolv(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("restoring resolv.conf: %w", err))
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		log.WithError(err).Warn("bottle teardown incomplete; attempting to continue")
	}

	if m.Config.UpdateHostname {
		return m.dropHostname(ctx)
	}
	return nil
}

// remountBinfmt puts binfmt_misc back on the host as a courtesy.
func (m *Manager) remountBinfmt(ctx context.Context) error {
	mounted, err := m.Host.BinfmtMounted()
	if err != nil {
		return fmt.Errorf("checking binfmt_misc mount: %w", err)
	}
	if mounted {
		return nil
	}

	m.log().Debug("remounting binfmt_misc filesystem as a courtesy")
	code, err := m.Runner.RunAndWait(ctx,
		lib.Command{Command: "mount", Args: []string{"-t", "binfmt_misc", "binfmt_misc", system.BinfmtMisc}})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("remounting binfmt_misc returned %d", code)
	}
	return nil
}

func (m *Manager) dropHostname(ctx context.Context) error {
	log := m.log()

	if err := m.sleep(ctx, settleDelay); err != nil {
		return err
	}

	log.Debug("dropping in-bottle hostname")
	err := runner.Chain(ctx, m.Runner, lib.Command{Command: "umount", Args: []string{system.HostnameFile}},
		"shutdown failed; unmounting hostname")
	if err != nil {
		return err
	}

	if err := m.Store.RemoveHostname(); err != nil {
		log.WithError(err).Warn("could not delete in-bottle hostname file")
	}
	if _, err := m.Host.RestoreHostname(); err != nil {
		log.WithError(err).Warn("could not restore hostname")
	}
	return nil
}
