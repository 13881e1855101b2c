//go:build linux

package privilege

import (
	"golang.org/x/sys/unix"
)

// systemCredentials changes the credentials of every thread of the process.
type systemCredentials struct{}

func (systemCredentials) Getresuid() (int, int, int) { return unix.Getresuid() }

func (systemCredentials) Getresgid() (int, int, int) { return unix.Getresgid() }

func (systemCredentials) Setresuid(r, e, s int) error { return unix.Setresuid(r, e, s) }

func (systemCredentials) Setresgid(r, e, s int) error { return unix.Setresgid(r, e, s) }
