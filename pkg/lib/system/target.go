package system

import (
	"os"
	"path/filepath"
)

const (
	defaultTargetLink = "/etc/systemd/system/default.target"

	// ExpectedTarget is the only default target known to work in a bottle.
	ExpectedTarget = "multi-user.target"
)

// DefaultTarget returns the unit name systemd boots into, following the
// default.target link.
func (h *Host) DefaultTarget() (string, error) {
	path := h.path(defaultTargetLink)
	for i := 0; i < 16; i++ {
		dest, err := os.Readlink(path)
		if err != nil {
			if _, serr := os.Lstat(path); serr != nil {
				return "", serr
			}
			// not a link
			break
		}
		if filepath.IsAbs(dest) {
			path = h.path(dest)
		} else {
			path = filepath.Join(filepath.Dir(path), dest)
		}
	}
	return filepath.Base(path), nil
}
