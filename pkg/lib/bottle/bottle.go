// Package bottle drives the lifecycle of the bottle: starting systemd in
// fresh pid and mount namespaces, stopping it again, and entering it to
// run shells, login prompts and commands.
//
// Every genie invocation is a separate short-lived process. The Manager
// therefore never assumes anything about the bottle that it has not just
// probed, and re-probes after every wait.
package bottle

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/config"
	"github.com/arkane-systems/genie/pkg/lib/privilege"
	"github.com/arkane-systems/genie/pkg/lib/probe"
	"github.com/arkane-systems/genie/pkg/lib/runner"
	"github.com/arkane-systems/genie/pkg/lib/state"
	"github.com/arkane-systems/genie/pkg/lib/system"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "bottle")

const (
	pidPollInterval   = 500 * time.Millisecond
	readyPollInterval = time.Second
	settleDelay       = 500 * time.Millisecond
)

// Manager performs bottle operations on behalf of one invocation.
type Manager struct {
	Session *lib.Session
	Config  *config.Config

	Runner runner.Executor
	Guard  *privilege.Guard
	Prober *probe.Prober
	Store  *state.Store
	Host   *system.Host
	Clock  clockwork.Clock

	// Out receives progress dots and other console output.
	Out io.Writer

	// Setenv changes genie's own environment; it defaults to os.Setenv.
	Setenv func(key, value string) error
}

// NewManager wires a Manager to the running system.
func NewManager(s *lib.Session, cfg *config.Config) *Manager {
	exec := runner.NewRunner()
	store := state.NewStore(state.DefaultDir)

	return &Manager{
		Session: s,
		Config:  cfg,
		Runner:  exec,
		Guard:   privilege.NewGuard(nil),
		Prober:  probe.NewProber(store, exec),
		Store:   store,
		Host:    system.NewHost(),
		Clock:   clockwork.NewRealClock(),
		Out:     os.Stdout,
		Setenv:  os.Setenv,
	}
}

func (m *Manager) log() *logrus.Entry {
	return logger.WithField("session", m.Session.ID)
}

func (m *Manager) print(a ...any) {
	fmt.Fprint(m.Out, a...)
}

func (m *Manager) println(a ...any) {
	fmt.Fprintln(m.Out, a...)
}

// sleep waits for d or until ctx is done.
func (m *Manager) sleep(ctx context.Context, d time.Duration) error {
	t := m.Clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

func (m *Manager) distro() string {
	return m.Session.Getenv("WSL_DISTRO_NAME")
}
