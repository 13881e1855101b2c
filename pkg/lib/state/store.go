// Package state persists genie's cross-invocation state in a transient
// runtime directory: three flag files whose presence encodes the lifecycle
// phase, and a handful of state files written while starting the bottle.
//
// The store does not enforce any invariant between the flags; keeping at
// most one of starting/shutdown set is the orchestrator's job.
package state

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moby/sys/atomicwriter"
	"github.com/sirupsen/logrus"
)

// DefaultDir is the runtime directory used by genie.
const DefaultDir = "/run"

const (
	startingFile = "genie.startup"
	shutdownFile = "genie.shutdown"
	runningFile  = "genie.up"

	pathFile     = "genie.path"
	envFile      = "genie.env"
	pidFile      = "genie.systemd.pid"
	hostnameFile = "hostname-wsl"
)

var logger = logrus.WithField("component", "state")

// Store reads and writes state under Dir.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.Dir, name)
}

// HostnamePath is the file holding the in-bottle hostname; it is bind
// mounted over /etc/hostname.
func (s *Store) HostnamePath() string {
	return s.path(hostnameFile)
}

// WritePath saves the PATH the caller had before genie replaced it.
func (s *Store) WritePath(original string) error {
	return atomicwriter.WriteFile(s.path(pathFile), []byte(original), 0o644)
}

// WriteEnv saves KEY=value lines for reuse inside the bottle.
func (s *Store) WriteEnv(vars []string) error {
	var b strings.Builder
	for _, v := range vars {
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return atomicwriter.WriteFile(s.path(envFile), []byte(b.String()), 0o644)
}

// WritePid saves the external pid of the bottle's systemd.
func (s *Store) WritePid(pid int) error {
	return atomicwriter.WriteFile(s.path(pidFile), []byte(strconv.Itoa(pid)), 0o644)
}

// ReadPid returns the saved systemd pid, or 0 if none is saved.
func (s *Store) ReadPid() (int, error) {
	data, err := os.ReadFile(s.path(pidFile))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// RemovePid deletes the saved systemd pid.
func (s *Store) RemovePid() error {
	return remove(s.path(pidFile))
}

// WriteHostname writes the in-bottle hostname file, world readable.
func (s *Store) WriteHostname(name string) error {
	return atomicwriter.WriteFile(s.HostnamePath(), []byte(name+"\n"), 0o644)
}

// RemoveHostname deletes the in-bottle hostname file.
func (s *Store) RemoveHostname() error {
	return remove(s.HostnamePath())
}

// Leftovers lists every file genie may leave behind.
func (s *Store) Leftovers() []string {
	names := []string{startingFile, shutdownFile, runningFile, envFile, pathFile, pidFile, hostnameFile}
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = s.path(n)
	}
	return paths
}

// Cleanup removes the leftover files that exist and returns their paths.
func (s *Store) Cleanup() ([]string, error) {
	var removed []string
	for _, p := range s.Leftovers() {
		if _, err := os.Lstat(p); err != nil {
			continue
		}
		logger.Debugf("deleting leftover file %s", p)
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed = append(removed, p)
	}
	return removed, nil
}

func remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
