//go:build !linux

package privilege

import "os"

type systemCredentials struct{}

func (systemCredentials) Getresuid() (int, int, int) {
	return os.Getuid(), os.Geteuid(), os.Geteuid()
}

func (systemCredentials) Getresgid() (int, int, int) {
	return os.Getgid(), os.Getegid(), os.Getegid()
}

func (systemCredentials) Setresuid(int, int, int) error { return ErrUnsupported }

func (systemCredentials) Setresgid(int, int, int) error { return ErrUnsupported }
