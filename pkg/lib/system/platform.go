package system

import (
	"errors"
	"os"
	"runtime"
	"strings"

	"github.com/arkane-systems/genie/pkg/lib"
)

var errNoRootMount = errors.New("cannot find root filesystem mount")

// IsWsl1 reports whether the root filesystem is one of WSL 1's.
func (h *Host) IsWsl1() (bool, error) {
	fstype, err := h.RootFSType()
	if err != nil {
		return false, err
	}
	return fstype == "lxfs" || fstype == "wslfs", nil
}

// IsWsl2 reports whether genie runs in a WSL 2 distribution.
func (h *Host) IsWsl2() bool {
	if fi, err := os.Stat(h.path("/run/WSL")); err == nil && fi.IsDir() {
		return true
	}
	release, err := os.ReadFile(h.path("/proc/sys/kernel/osrelease"))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(release)), "microsoft")
}

// Check refuses to run anywhere but setuid root on WSL 2.
func (h *Host) Check(euid int) error {
	if runtime.GOOS != "linux" {
		return lib.Fatal(lib.CodeBadFile, "not executing on the Linux platform - how did we get here?")
	}

	wsl1, err := h.IsWsl1()
	if err != nil {
		return &lib.ExitError{Code: lib.CodeNoPerm, Msg: "checking root filesystem", Err: err}
	}
	if wsl1 {
		return lib.Fatal(lib.CodeNoPerm, "systemd is not supported under WSL 1")
	}
	if !h.IsWsl2() {
		return lib.Fatal(lib.CodeBadFile, "not executing under WSL 2 - how did we get here?")
	}
	if euid != 0 {
		return lib.Fatal(lib.CodeNoPerm, "must execute as root - has the setuid bit gone astray?")
	}
	return nil
}
