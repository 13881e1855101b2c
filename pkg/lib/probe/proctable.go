package probe

import (
	"errors"
	"io/fs"
	"sort"

	"github.com/mitchellh/go-ps"
	"github.com/prometheus/procfs"
)

// InitProgram is the executable name of the init system run in the bottle.
const InitProgram = "systemd"

// ProcessTable answers the two process-table questions genie asks.
type ProcessTable interface {
	// InitPid returns the pid, as seen from the caller's pid namespace, of
	// the earliest-started init program owned by real uid 0, or 0 if none.
	InitPid() (int, error)

	// Alive reports whether pid still exists.
	Alive(pid int) (bool, error)
}

// SystemTable reads the live process table.
type SystemTable struct {
	// Name is the executable name to look for; empty means InitProgram.
	Name string

	// inspect returns the real uid and start time of pid; nil uses procfs.
	inspect func(pid int) (uid uint64, start uint64, err error)
	list    func() ([]ps.Process, error)
}

type candidate struct {
	pid   int
	start uint64
}

func (t *SystemTable) InitPid() (int, error) {
	name := t.Name
	if name == "" {
		name = InitProgram
	}
	list := t.list
	if list == nil {
		list = ps.Processes
	}
	inspect := t.inspect
	if inspect == nil {
		inspect = procInfo
	}

	procs, err := list()
	if err != nil {
		return 0, err
	}

	var found []candidate
	for _, p := range procs {
		if p.Executable() != name {
			continue
		}
		uid, start, err := inspect(p.Pid())
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// exited since the listing
				continue
			}
			return 0, err
		}
		if uid != 0 {
			continue
		}
		found = append(found, candidate{pid: p.Pid(), start: start})
	}
	if len(found) == 0 {
		return 0, nil
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].start != found[j].start {
			return found[i].start < found[j].start
		}
		return found[i].pid < found[j].pid
	})
	logger.Debugf("%d %s candidates, earliest pid %d", len(found), name, found[0].pid)
	return found[0].pid, nil
}

func (t *SystemTable) Alive(pid int) (bool, error) {
	p, err := ps.FindProcess(pid)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

func procInfo(pid int) (uint64, uint64, error) {
	p, err := procfs.NewProc(pid)
	if err != nil {
		return 0, 0, err
	}
	status, err := p.NewStatus()
	if err != nil {
		return 0, 0, err
	}
	stat, err := p.Stat()
	if err != nil {
		return 0, 0, err
	}
	return status.UIDs[0], stat.Starttime, nil
}
