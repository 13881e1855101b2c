package bottle

import (
	"context"
	"fmt"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/config"
	"github.com/arkane-systems/genie/pkg/lib/probe"
	"github.com/arkane-systems/genie/pkg/lib/runner"
	"github.com/arkane-systems/genie/pkg/lib/system"
)

// windowsPath is saved as the original PATH unless clone-path is set.
const windowsPath = "/mnt/c/Windows/System32"

// StartBottle creates the bottle and waits for its systemd to come up.
// The caller must hold the privilege guard.
//
// Failures before systemd exists are fatal and leave the starting flag set;
// "genie cleanup" clears it. Once systemd runs, problems only produce
// warnings.
func (m *Manager) StartBottle(ctx context.Context) error {
	log := m.log()
	log.Debug("initializing bottle")

	if err := m.Store.SetStarting(true); err != nil {
		return fmt.Errorf("setting starting flag: %w", err)
	}

	m.stashEnvironment()

	if m.Config.TargetWarning {
		m.checkTarget()
	}

	if m.Config.UpdateHostname {
		if err := m.updateHostname(ctx); err != nil {
			return err
		}
	}

	if m.Config.ResolvedStub {
		if err := m.Host.ConfigureResolv(); err != nil {
			log.WithError(err).Warn("could not create resolv.conf symlink; attempting to continue")
		}
	}

	if err := m.unmountBinfmt(ctx); err != nil {
		return err
	}

	argv := m.startupChain(ctx)
	log.Debugf("starting systemd with command line: %s", runner.CommandLine(lib.Command{Command: argv[0], Args: argv[1:]}))

	err := runner.Chain(ctx, m.Runner, lib.Command{Command: argv[0], Args: argv[1:]}, "initializing bottle failed; daemonize")
	if err != nil {
		return err
	}

	pid, err := m.waitForPid(ctx)
	if err != nil {
		return err
	}

	if err := m.Store.WritePid(pid); err != nil {
		log.WithError(err).Warn("could not save systemd pid")
	}

	if err := m.waitForReady(ctx, pid); err != nil {
		return err
	}

	if m.Config.MountXSocket {
		if err := m.bindXSocket(ctx, pid); err != nil {
			return err
		}
	}

	if err := m.Store.SetRunning(true); err != nil {
		return fmt.Errorf("setting running flag: %w", err)
	}
	if err := m.Store.SetStarting(false); err != nil {
		return fmt.Errorf("clearing starting flag: %w", err)
	}
	return nil
}

// stashEnvironment saves the caller's PATH and cloned variables for use
// inside the bottle, then switches genie to the secure path.
func (m *Manager) stashEnvironment() {
	log := m.log()

	original := windowsPath
	if m.Config.ClonePath {
		original = m.Session.Getenv("PATH")
	}
	if err := m.Store.WritePath(original); err != nil {
		log.WithError(err).Warn("could not save original PATH")
	}

	if err := m.Setenv("PATH", m.Config.SecurePath); err != nil {
		log.WithError(err).Warn("could not set secure PATH")
	}

	if err := m.Store.WriteEnv(m.clonedVariables()); err != nil {
		log.WithError(err).Warn("could not save environment")
	}
}

func (m *Manager) clonedVariables() []string {
	seen := make(map[string]bool)
	var vars []string
	add := func(kv string) {
		if !seen[kv] {
			seen[kv] = true
			vars = append(vars, kv)
		}
	}

	for _, kv := range config.DefaultVariables {
		add(kv)
	}
	for _, name := range m.Config.CloneEnv {
		if v, ok := m.Session.LookupEnv(name); ok {
			add(name + "=" + v)
		}
	}
	return vars
}

func (m *Manager) checkTarget() {
	log := m.log()

	target, err := m.Host.DefaultTarget()
	if err != nil {
		log.WithError(err).Warn("could not determine systemd default target")
		return
	}
	if target != system.ExpectedTarget {
		log.Warnf("systemd default target is %s; targets other than %s may not work", target, system.ExpectedTarget)
		log.Warn("if you wish to use a different target, this warning can be disabled in the config file")
		log.Warnf("if you experience problems, please change the target to %s", system.ExpectedTarget)
	}
}

func (m *Manager) updateHostname(ctx context.Context) error {
	log := m.log()

	external, err := m.Host.Hostname()
	if err != nil {
		return &lib.ExitError{Code: lib.CodeHostsFile, Msg: "error reading hostname", Err: err}
	}
	internal := system.InternalHostname(external, m.Config.HostnameSuffix)
	log.Debugf("external hostname is %s, internal hostname %s", external, internal)

	if err := m.Store.WriteHostname(internal); err != nil {
		return &lib.ExitError{Code: lib.CodeHostsFile, Msg: "error writing hostname file", Err: err}
	}

	log.Debug("updating hosts file")
	if err := m.Host.UpdateHosts(external, internal); err != nil {
		return &lib.ExitError{Code: lib.CodeHostsFile, Msg: "error updating host file", Err: err}
	}

	log.Debug("setting new hostname")
	return runner.Chain(ctx, m.Runner,
		lib.Command{Command: "mount", Args: []string{"--bind", m.Store.HostnamePath(), system.HostnameFile}},
		"initializing bottle failed; bind mounting hostname")
}

// unmountBinfmt releases binfmt_misc so systemd can mount it afresh in the
// bottle.
func (m *Manager) unmountBinfmt(ctx context.Context) error {
	log := m.log()

	mounted, err := m.Host.BinfmtMounted()
	if err != nil {
		log.WithError(err).Warn("could not check binfmt_misc mount")
		return nil
	}
	if !mounted {
		log.Debug("no binfmt_misc filesystem present")
		return nil
	}

	log.Debug("unmounting binfmt_misc filesystem before proceeding")
	code, err := m.Runner.RunAndWait(ctx, lib.Command{Command: "umount", Args: []string{system.BinfmtMisc}})
	if err != nil {
		return err
	}
	if code != 0 {
		log.Warnf("failed to unmount binfmt_misc filesystem (umount returned %d); attempting to continue", code)
	}
	return nil
}

// startupChain builds the daemonize command line that starts systemd.
func (m *Manager) startupChain(ctx context.Context) []string {
	argv := []string{"daemonize", m.Config.UnsharePath, "-fp", "--propagation", "shared", "--mount-proc", "--"}

	if m.Config.AppArmorNamespace {
		if ns, ok := m.configureAppArmor(ctx); ok {
			argv = append(argv, "aa-exec", "-n", ns, "-p", "unconfined", "--")
		}
	}

	return append(argv, probe.InitProgram)
}

// configureAppArmor prepares a policy namespace for the bottle. Nothing
// here is fatal; without it systemd simply runs unconfined by genie.
func (m *Manager) configureAppArmor(ctx context.Context) (string, bool) {
	log := m.log()

	if !m.Host.AppArmorAvailable() {
		log.Debug("AppArmor not available in kernel; attempting to continue without AppArmor namespace")
		return "", false
	}

	distro := m.distro()
	if distro == "" {
		log.Warn("WSL_DISTRO_NAME is not set; attempting to continue without AppArmor namespace")
		return "", false
	}

	if !m.Host.SecurityFSMounted() {
		log.Debug("mounting AppArmor filesystem")
		code, err := m.Runner.RunAndWait(ctx, lib.Command{Command: "mount", Args: []string{"-t", "securityfs", "securityfs", system.SecurityFS}})
		if err != nil || code != 0 {
			log.WithError(err).Warnf("failed to mount AppArmor filesystem (exit %d); attempting to continue without AppArmor", code)
			return "", false
		}
	}

	ns, err := m.Host.CreateAppArmorNamespace(distro)
	if err != nil {
		log.WithError(err).Warn("could not create AppArmor namespace; attempting to continue without AppArmor")
		return "", false
	}
	return ns, true
}

// waitForPid polls until systemd shows up in the process table. There is no
// upper bound: a daemonize that succeeded is expected to produce systemd.
func (m *Manager) waitForPid(ctx context.Context) (int, error) {
	m.print("Waiting for systemd...")

	for {
		if err := m.sleep(ctx, pidPollInterval); err != nil {
			return 0, err
		}

		pid, err := m.Prober.Table.InitPid()
		if err != nil {
			return 0, fmt.Errorf("looking for systemd: %w", err)
		}
		m.print(".")

		if pid != 0 {
			m.log().Debugf("systemd pid %d", pid)
			return pid, nil
		}
	}
}

// waitForReady polls systemd's state for up to systemd-timeout seconds.
// Timing out is reported but never fatal.
func (m *Manager) waitForReady(ctx context.Context, pid int) error {
	timeout := m.Config.SystemdTimeout

	for i := 0; ; i++ {
		if err := m.sleep(ctx, readyPollInterval); err != nil {
			return err
		}

		ready, err := probe.Ready(ctx, m.Runner, pid)
		if err != nil {
			return err
		}
		m.print("!")

		if ready {
			m.println()
			return nil
		}
		if i+1 >= timeout {
			break
		}
	}

	m.println()
	return m.reportNotReady(ctx, pid)
}

func (m *Manager) reportNotReady(ctx context.Context, pid int) error {
	log := m.log()

	st, err := probe.State(ctx, m.Runner, pid)
	if err != nil {
		return err
	}

	if st == "starting" {
		log.Infof("systemd is still starting after %d seconds; continuing", m.Config.SystemdTimeout)
		return nil
	}

	log.Warnf("systemd did not enter running state (%s) after %d seconds", st, m.Config.SystemdTimeout)
	log.Warn("this may be due to a problem with your systemd configuration")
	m.println("genie: failed units will now be displayed (systemctl list-units --failed):")

	code, err := m.Runner.RunAndWait(ctx, runner.Inside(pid, "systemctl", "list-units", "--failed"))
	if err != nil {
		return err
	}
	if code != 0 {
		log.Debugf("systemctl list-units --failed returned %d", code)
	}
	return nil
}

// bindXSocket makes the WSLg X server reachable from inside the bottle.
func (m *Manager) bindXSocket(ctx context.Context, pid int) error {
	log := m.log()

	if !m.Host.HasWSLg() {
		log.Debugf("%s not present; not binding X socket", system.WSLgX11)
		return nil
	}

	log.Debug("bind mounting WSLg X11 socket")
	code, err := m.Runner.RunAndWait(ctx,
		runner.Inside(pid, "mount", "--bind", "-o", "X-mount.mkdir", system.WSLgX11, system.X11Socket))
	if err != nil {
		return err
	}
	if code != 0 {
		log.Warnf("binding WSLg X11 socket returned %d; attempting to continue", code)
	}
	return nil
}
