// Package system wraps the host files and kernel interfaces genie adjusts
// around the bottle: hostname and hosts file, resolver symlink, AppArmor
// namespace, binfmt_misc, systemd default target and platform checks.
//
// All paths are resolved under Host.Root so the package can be exercised
// against a scratch directory.
package system

import (
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

var logger = logrus.WithField("component", "system")

// Host is the machine genie runs on.
type Host struct {
	// Root is prepended to every path; empty means "/".
	Root string

	Nodename    func() (string, error)
	Sethostname func(name string) error
	Mounted     func(path string) (bool, error)
	RootFSType  func() (string, error)
}

// NewHost returns a Host backed by the running kernel.
func NewHost() *Host {
	return &Host{
		Nodename:    nodename,
		Sethostname: func(name string) error { return unix.Sethostname([]byte(name)) },
		Mounted:     mountinfo.Mounted,
		RootFSType:  rootFSType,
	}
}

func (h *Host) path(p string) string {
	if h.Root == "" {
		return p
	}
	return filepath.Join(h.Root, p)
}

func nodename() (string, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(u.Nodename[:]), nil
}

func rootFSType() (string, error) {
	mounts, err := mountinfo.GetMounts(mountinfo.SingleEntryFilter("/"))
	if err != nil {
		return "", err
	}
	if len(mounts) == 0 {
		return "", errNoRootMount
	}
	return mounts[0].FSType, nil
}
