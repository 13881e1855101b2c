package system

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const (
	hostsFile    = "/etc/hosts"
	HostnameFile = "/etc/hostname"

	// maxHostBase leaves room for the suffix within the 64-byte limit.
	maxHostBase = 60
)

// InternalHostname derives the in-bottle hostname from the external one.
func InternalHostname(external, suffix string) string {
	if len(external) > maxHostBase {
		external = external[:maxHostBase]
	}
	return external + suffix
}

// Hostname returns the kernel hostname.
func (h *Host) Hostname() (string, error) {
	return h.Nodename()
}

// UpdateHosts maps internal to loopback in the hosts file. Loopback lines
// naming either hostname are dropped so that repeated starts do not pile
// up entries.
func (h *Host) UpdateHosts(external, internal string) error {
	path := h.path(hostsFile)

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := []string{fmt.Sprintf("127.0.0.1 localhost %s", internal)}
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "127.0.0.1") &&
			(strings.Contains(line, external) || strings.Contains(line, internal)) {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	// rewritten in place; WSL may bind mount the hosts file
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), fi.Mode().Perm())
}

// RestoreHostname sets the kernel hostname from the first line of the
// hostname file, once the in-bottle hostname is no longer mounted over it.
func (h *Host) RestoreHostname() (string, error) {
	data, err := os.ReadFile(h.path(HostnameFile))
	if err != nil {
		return "", err
	}
	name, _, _ := strings.Cut(string(data), "\n")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%s is empty", HostnameFile)
	}

	logger.Debugf("restoring hostname %s", name)
	return name, h.Sethostname(name)
}
