package system

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	apparmorModule     = "/sys/module/apparmor"
	SecurityFS         = "/sys/kernel/security"
	apparmorFS         = "/sys/kernel/security/apparmor"
	apparmorNamespaces = "/sys/kernel/security/apparmor/policy/namespaces"
)

var errNoNamespaces = errors.New("apparmor policy namespaces not available")

// AppArmorNamespace names the policy namespace for a distribution.
func AppArmorNamespace(distro string) string {
	return "genie-" + distro
}

// AppArmorAvailable reports whether the kernel has AppArmor loaded.
func (h *Host) AppArmorAvailable() bool {
	_, err := os.Stat(h.path(apparmorModule))
	return err == nil
}

// SecurityFSMounted reports whether the AppArmor filesystem is visible.
func (h *Host) SecurityFSMounted() bool {
	_, err := os.Stat(h.path(apparmorFS))
	return err == nil
}

// CreateAppArmorNamespace creates the policy namespace for distro and
// returns its name. An existing namespace is reused.
func (h *Host) CreateAppArmorNamespace(distro string) (string, error) {
	dir := h.path(apparmorNamespaces)
	if _, err := os.Stat(dir); err != nil {
		return "", errNoNamespaces
	}

	name := AppArmorNamespace(distro)
	logger.Debugf("creating AppArmor namespace %s", name)
	if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", err
	}
	return name, nil
}

// DeleteAppArmorNamespace removes the namespace created for distro. It is
// not an error if there is none.
func (h *Host) DeleteAppArmorNamespace(distro string) error {
	path := filepath.Join(h.path(apparmorNamespaces), AppArmorNamespace(distro))
	if _, err := os.Stat(path); err != nil {
		logger.Debug("no AppArmor namespace to delete")
		return nil
	}
	return os.Remove(path)
}
