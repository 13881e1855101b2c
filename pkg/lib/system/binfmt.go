package system

import (
	"errors"
	"io/fs"
)

// BinfmtMisc is where the binfmt_misc filesystem is mounted.
const BinfmtMisc = "/proc/sys/fs/binfmt_misc"

// BinfmtMounted reports whether binfmt_misc is mounted on the host.
func (h *Host) BinfmtMounted() (bool, error) {
	mounted, err := h.Mounted(h.path(BinfmtMisc))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return mounted, err
}
