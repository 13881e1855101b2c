package bottle

import (
	"context"

	"github.com/arkane-systems/genie/pkg/lib"
)

// IsRunning describes the bottle and returns the matching exit code:
// running 0, stopped 1, starting 2, stopping 3, running with systemd errors 4.
func (m *Manager) IsRunning(ctx context.Context) (string, int, error) {
	st, err := m.Prober.Probe(ctx)
	if err != nil {
		return "", 0, err
	}

	switch st.Status {
	case lib.BottleStarted, lib.InsideBottle:
		return "running", 0, nil
	case lib.BottleStarting:
		return "starting", 2, nil
	case lib.BottleShutdown:
		return "stopping", 3, nil
	case lib.BottleStartedNotReady, lib.InsideBottleNotReady:
		return "running (systemd errors)", 4, nil
	default:
		return "stopped", 1, nil
	}
}

// IsInBottle reports where genie runs relative to the bottle.
func (m *Manager) IsInBottle(ctx context.Context) (string, int, error) {
	st, err := m.Prober.Probe(ctx)
	if err != nil {
		return "", 0, err
	}

	switch {
	case st.StartedWithinBottle():
		return "inside", 0, nil
	case st.Status == lib.NoBottlePresent:
		return "no-bottle", 2, nil
	default:
		return "outside", 1, nil
	}
}

// Cleanup deletes flag and state files left by an interrupted genie. It
// refuses while a bottle exists.
func (m *Manager) Cleanup(ctx context.Context) ([]string, error) {
	st, err := m.Prober.Probe(ctx)
	if err != nil {
		return nil, err
	}
	if st.Status != lib.NoBottlePresent {
		return nil, lib.Fatal(lib.CodeInvalid, "cannot clean up while a bottle exists (%s)", st.Status)
	}

	var removed []string
	err = m.Guard.Do(func() error {
		var err error
		removed, err = m.Store.Cleanup()
		return err
	})
	return removed, err
}
