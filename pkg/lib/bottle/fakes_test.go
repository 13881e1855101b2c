package bottle

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/config"
	"github.com/arkane-systems/genie/pkg/lib/privilege"
	"github.com/arkane-systems/genie/pkg/lib/probe"
	"github.com/arkane-systems/genie/pkg/lib/runner"
	"github.com/arkane-systems/genie/pkg/lib/state"
	"github.com/arkane-systems/genie/pkg/lib/system"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const bottlePid = 812

// world simulates the commands genie runs and the process table they
// affect.
type world struct {
	t     *testing.T
	store *state.Store

	mu    sync.Mutex
	pid   int
	alive map[int]bool

	// ready is the readiness check result; state the is-system-running text
	ready bool
	state string

	// codes overrides exit codes by program name
	codes map[string]int

	// noSystemd makes daemonize succeed without systemd appearing
	noSystemd bool
	// stubborn keeps systemd alive after poweroff
	stubborn bool

	ran []string

	startingAtDaemonize bool
	flagsAtAction       state.Flags
}

func (w *world) InitPid() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pid, nil
}

func (w *world) Alive(pid int) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alive[pid], nil
}

func (w *world) setPid(pid int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pid = pid
	w.alive[pid] = pid != 0
}

func (w *world) RunAndWait(_ context.Context, cmd lib.Command) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ran = append(w.ran, runner.CommandLine(cmd))

	if code, ok := w.codes[cmd.Command]; ok {
		return code, nil
	}

	switch cmd.Command {
	case "daemonize":
		w.startingAtDaemonize = w.store.Starting()
		if !w.noSystemd {
			w.pid = bottlePid
			w.alive[bottlePid] = true
		}
	case "systemctl":
		switch cmd.Args[0] {
		case "is-system-running":
			if !w.ready {
				return 1, nil
			}
		case "poweroff":
			if !w.stubborn {
				w.alive[w.pid] = false
				w.pid = 0
			}
		}
	case "machinectl":
		w.flagsAtAction = w.store.Flags()
	}
	return 0, nil
}

func (w *world) RunAndWaitForOutput(ctx context.Context, cmd lib.Command) (string, error) {
	if _, err := w.RunAndWait(ctx, cmd); err != nil {
		return "", err
	}
	return w.state + "\n", nil
}

func (w *world) commands() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.ran...)
}

func (w *world) count(prefix string) int {
	n := 0
	for _, c := range w.commands() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// rootCredentials stands in for a setuid-root process.
type rootCredentials struct {
	uid, gid [3]int
}

func (c *rootCredentials) Getresuid() (int, int, int) { return c.uid[0], c.uid[1], c.uid[2] }
func (c *rootCredentials) Getresgid() (int, int, int) { return c.gid[0], c.gid[1], c.gid[2] }
func (c *rootCredentials) Setresuid(r, e, s int) error {
	c.uid = [3]int{r, e, s}
	return nil
}
func (c *rootCredentials) Setresgid(r, e, s int) error {
	c.gid = [3]int{r, e, s}
	return nil
}

type fixture struct {
	m       *Manager
	w       *world
	clock   *clockwork.FakeClock
	creds   *rootCredentials
	root    string
	out     *bytes.Buffer
	env     map[string]string
	hostSet []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc/hosts"), []byte("127.0.0.1\tlocalhost\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc/hostname"), []byte("DESKTOP-1\n"), 0o644))

	store := state.NewStore(t.TempDir())
	w := &world{t: t, store: store, alive: map[int]bool{}, ready: true, state: "running", codes: map[string]int{}}

	f := &fixture{
		w:     w,
		clock: clockwork.NewFakeClock(),
		creds: &rootCredentials{uid: [3]int{1000, 0, 0}, gid: [3]int{1000, 1000, 1000}},
		root:  root,
		out:   &bytes.Buffer{},
		env:   map[string]string{},
	}

	host := &system.Host{
		Root:     root,
		Nodename: func() (string, error) { return "DESKTOP-1", nil },
		Sethostname: func(name string) error {
			f.hostSet = append(f.hostSet, name)
			return nil
		},
		Mounted:    func(string) (bool, error) { return false, nil },
		RootFSType: func() (string, error) { return "ext4", nil },
	}

	cfg := config.Default()
	cfg.SystemdTimeout = 3
	cfg.TargetWarning = false

	f.m = &Manager{
		Session: &lib.Session{
			ID:       "test-session",
			RealUID:  1000,
			RealGID:  1000,
			UserName: "alice",
			Cwd:      "/home/alice/src",
			Environ:  []string{"PATH=/home/alice/bin:/usr/bin", "WSL_DISTRO_NAME=Ubuntu", "DISPLAY=:0", "EDITOR=vi"},
		},
		Config: cfg,
		Runner: w,
		Guard:  privilege.NewGuard(f.creds),
		Prober: &probe.Prober{Table: w, Flags: store, Exec: w},
		Store:  store,
		Host:   host,
		Clock:  f.clock,
		Out:    f.out,
		Setenv: func(k, v string) error {
			f.env[k] = v
			return nil
		},
	}
	return f
}

// drive advances the fake clock whenever the manager waits on it, calling
// step first with the number of waits so far. The returned function stops
// the driver.
func (f *fixture) drive(step func(n int)) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		for n := 0; ; n++ {
			if err := f.clock.BlockUntilContext(ctx, 1); err != nil {
				return
			}
			if step != nil {
				step(n)
			}
			f.clock.Advance(time.Second)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// running puts the fixture in the state of a started bottle.
func (f *fixture) running(t *testing.T) {
	t.Helper()
	f.w.setPid(bottlePid)
	require.NoError(t, f.m.Store.SetRunning(true))
}

func (f *fixture) requireRestored(t *testing.T) {
	t.Helper()
	require.False(t, f.m.Guard.Held())
	require.Equal(t, [3]int{1000, 0, 0}, f.creds.uid)
	require.Equal(t, [3]int{1000, 1000, 1000}, f.creds.gid)
}

func (f *fixture) readState(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.m.Store.Dir, name))
	require.NoError(t, err)
	return string(data)
}
