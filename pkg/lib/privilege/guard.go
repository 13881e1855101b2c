// Package privilege raises the real and effective credentials of a setuid
// process to root for a bounded scope.
//
// genie is installed setuid root, so it normally runs with a real uid of
// the invoking user and an effective uid of 0. Some helpers (daemonize,
// unshare, mount) insist on a real uid of 0 as well. A Guard switches every
// id to 0 and puts back the exact previous triple when released.
package privilege

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "privilege")

var (
	// ErrNested is returned when Acquire is called while the guard is held.
	ErrNested = errors.New("privilege: already elevated")

	// ErrUnsupported is returned on platforms without setres[ug]id.
	ErrUnsupported = errors.New("privilege: not supported on this platform")
)

// Credentials is the set of credential calls a Guard needs.
type Credentials interface {
	Getresuid() (ruid, euid, suid int)
	Getresgid() (rgid, egid, sgid int)
	Setresuid(ruid, euid, suid int) error
	Setresgid(rgid, egid, sgid int) error
}

type ids struct {
	uid [3]int
	gid [3]int
}

// Guard scopes root privilege. It is not reentrant: a second Acquire while
// held fails instead of saving root as the identity to restore.
type Guard struct {
	creds Credentials

	mu    sync.Mutex
	held  bool
	saved ids
}

// NewGuard returns a guard over creds. Pass nil for the process credentials.
func NewGuard(creds Credentials) *Guard {
	if creds == nil {
		creds = systemCredentials{}
	}
	return &Guard{creds: creds}
}

// Held reports whether the guard currently holds root.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Acquire switches real, effective and saved ids to root. The returned
// release function restores the previous ids; calling it more than once
// has no further effect.
func (g *Guard) Acquire() (release func() error, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return nil, ErrNested
	}

	var prev ids
	prev.uid[0], prev.uid[1], prev.uid[2] = g.creds.Getresuid()
	prev.gid[0], prev.gid[1], prev.gid[2] = g.creds.Getresgid()

	// gid first: changing it needs an effective uid of 0
	if err := g.creds.Setresgid(0, 0, 0); err != nil {
		return nil, fmt.Errorf("becoming root (gid): %w", err)
	}
	if err := g.creds.Setresuid(0, 0, 0); err != nil {
		if rerr := g.restore(prev); rerr != nil {
			logger.WithError(rerr).Warn("could not restore credentials after failed elevation")
		}
		return nil, fmt.Errorf("becoming root (uid): %w", err)
	}

	g.held = true
	g.saved = prev
	logger.Debugf("elevated from uid %v gid %v", prev.uid, prev.gid)

	var once sync.Once
	return func() error {
		var rerr error
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			rerr = g.restore(g.saved)
			g.held = false
			g.saved = ids{}
		})
		return rerr
	}, nil
}

// restore puts the group ids back while still root, then the user ids.
func (g *Guard) restore(prev ids) error {
	if err := g.creds.Setresgid(prev.gid[0], prev.gid[1], prev.gid[2]); err != nil {
		return fmt.Errorf("restoring gid: %w", err)
	}
	if err := g.creds.Setresuid(prev.uid[0], prev.uid[1], prev.uid[2]); err != nil {
		return fmt.Errorf("restoring uid: %w", err)
	}
	return nil
}

// Do runs fn as root and restores the previous identity afterwards, also
// when fn panics.
func (g *Guard) Do(fn func() error) (err error) {
	release, err := g.Acquire()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn()
}
