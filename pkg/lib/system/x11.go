package system

import "os"

const (
	// WSLgX11 is the X server socket directory WSLg provides.
	WSLgX11 = "/mnt/wslg/.X11-unix"

	// X11Socket is where X clients look for it.
	X11Socket = "/tmp/.X11-unix"
)

// HasWSLg reports whether WSLg's X socket directory exists.
func (h *Host) HasWSLg() bool {
	fi, err := os.Stat(h.path(WSLgX11))
	return err == nil && fi.IsDir()
}
