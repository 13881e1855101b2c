package system

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const (
	resolvConf   = "/etc/resolv.conf"
	resolvBackup = "/etc/resolv.conf.wsl"

	// StubResolv only exists once systemd-resolved runs in the bottle.
	StubResolv = "/run/systemd/resolve/stub-resolv.conf"
)

// ConfigureResolv moves resolv.conf aside and points it at the
// systemd-resolved stub.
func (h *Host) ConfigureResolv() error {
	conf, backup := h.path(resolvConf), h.path(resolvBackup)

	if _, err := os.Lstat(conf); err == nil {
		logger.Debugf("backing up %s to %s", resolvConf, resolvBackup)
		if err := os.Rename(conf, backup); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	logger.Debugf("linking %s to %s", resolvConf, StubResolv)
	return os.Symlink(StubResolv, conf)
}

// UnconfigureResolv removes the stub symlink and restores the backup.
func (h *Host) UnconfigureResolv() error {
	conf, backup := h.path(resolvConf), h.path(resolvBackup)

	fi, err := os.Lstat(conf)
	if err != nil {
		return fmt.Errorf("%s does not exist", resolvConf)
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%s is not a symlink", resolvConf)
	}
	if err := os.Remove(conf); err != nil {
		return err
	}

	if _, err := os.Stat(backup); err != nil {
		return fmt.Errorf("%s does not exist; please restore %s manually", resolvBackup, resolvConf)
	}
	return os.Rename(backup, conf)
}
