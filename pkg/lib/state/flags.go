package state

import "os"

// Starting reports whether a bottle is being started.
func (s *Store) Starting() bool { return s.test(startingFile) }

// ShuttingDown reports whether a bottle is being shut down.
func (s *Store) ShuttingDown() bool { return s.test(shutdownFile) }

// Running reports whether a bottle has finished starting.
func (s *Store) Running() bool { return s.test(runningFile) }

func (s *Store) SetStarting(v bool) error { return s.set(startingFile, v) }

func (s *Store) SetShuttingDown(v bool) error { return s.set(shutdownFile, v) }

func (s *Store) SetRunning(v bool) error { return s.set(runningFile, v) }

func (s *Store) test(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *Store) set(name string, v bool) error {
	if !v {
		return remove(s.path(name))
	}
	f, err := os.OpenFile(s.path(name), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Flags is a snapshot of the three flag files.
type Flags struct {
	Starting     bool
	ShuttingDown bool
	Running      bool
}

// Flags reads all three flags.
func (s *Store) Flags() Flags {
	return Flags{
		Starting:     s.Starting(),
		ShuttingDown: s.ShuttingDown(),
		Running:      s.Running(),
	}
}
