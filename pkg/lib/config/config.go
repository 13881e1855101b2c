// Package config loads genie's system-wide settings from /etc/genie.ini.
package config

import (
	"path/filepath"

	"gopkg.in/ini.v1"
)

const (
	// DefaultPath is the system-wide configuration file.
	DefaultPath = "/etc/genie.ini"

	section = "genie"
)

// Prefix is the install prefix of genie and its helpers. Packagers may
// override it with -ldflags "-X github.com/arkane-systems/genie/pkg/lib/config.Prefix=/usr/local".
var Prefix = "/usr"

// DefaultVariables are added to every environment snapshot so that code
// inside the bottle can tell where it runs.
var DefaultVariables = []string{"INSIDE_GENIE=true"}

// Config holds the values read from the [genie] section.
type Config struct {
	SecurePath        string
	ClonePath         bool
	CloneEnv          []string
	UpdateHostname    bool
	HostnameSuffix    string
	UnsharePath       string
	SystemdTimeout    int
	ResolvedStub      bool
	AppArmorNamespace bool
	TargetWarning     bool
	MountXSocket      bool
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SecurePath:     "/lib/systemd:/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		CloneEnv:       []string{"WSL_DISTRO_NAME", "WSL_INTEROP", "WSLENV", "DISPLAY", "WAYLAND_DISPLAY", "PULSE_SERVER"},
		UpdateHostname: true,
		HostnameSuffix: "-wsl",
		UnsharePath:    "/usr/bin/unshare",
		SystemdTimeout: 240,
		TargetWarning:  true,
		MountXSocket:   true,
	}
}

// Load reads the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	f, err := ini.LooseLoad(path)
	if err != nil {
		return nil, err
	}
	return fromFile(f), nil
}

// Parse reads configuration from ini-formatted data.
func Parse(data []byte) (*Config, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, err
	}
	return fromFile(f), nil
}

func fromFile(f *ini.File) *Config {
	def := Default()
	s := f.Section(section)

	c := &Config{
		SecurePath:        s.Key("secure-path").MustString(def.SecurePath),
		ClonePath:         s.Key("clone-path").MustBool(def.ClonePath),
		CloneEnv:          def.CloneEnv,
		UpdateHostname:    s.Key("update-hostname").MustBool(def.UpdateHostname),
		HostnameSuffix:    s.Key("update-hostname-suffix").MustString(def.HostnameSuffix),
		UnsharePath:       s.Key("unshare").MustString(def.UnsharePath),
		SystemdTimeout:    s.Key("systemd-timeout").MustInt(def.SystemdTimeout),
		ResolvedStub:      s.Key("resolved-stub").MustBool(def.ResolvedStub),
		AppArmorNamespace: s.Key("apparmor-namespace").MustBool(def.AppArmorNamespace),
		TargetWarning:     s.Key("target-warning").MustBool(def.TargetWarning),
		MountXSocket:      s.Key("mount-x-socket").MustBool(def.MountXSocket),
	}
	if s.HasKey("clone-env") {
		c.CloneEnv = s.Key("clone-env").Strings(",")
	}
	if c.SystemdTimeout < 0 {
		c.SystemdTimeout = 0
	}
	return c
}

// HelperPath returns the installed location of a genie helper binary.
func HelperPath(name string) string {
	return filepath.Join(Prefix, "libexec", "genie", name)
}
