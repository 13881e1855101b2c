package runner

import (
	"strconv"

	"github.com/arkane-systems/genie/pkg/lib"
)

// Inside returns a command that runs argv in the mount and pid namespaces
// of pid.
func Inside(pid int, argv ...string) lib.Command {
	cmd := lib.Command{Enter: &lib.Namespaces{Pid: pid, Mount: true, PID: true}}
	if len(argv) > 0 {
		cmd.Command = argv[0]
		cmd.Args = append([]string(nil), argv[1:]...)
	}
	return cmd
}

// argv returns the program and arguments actually executed for cmd, with
// the namespace-entry prefix applied.
func argv(nsenter string, cmd lib.Command) (string, []string) {
	if cmd.Enter == nil {
		return cmd.Command, cmd.Args
	}

	args := []string{"-t", strconv.Itoa(cmd.Enter.Pid)}
	if cmd.Enter.Mount {
		args = append(args, "-m")
	}
	if cmd.Enter.PID {
		args = append(args, "-p")
	}
	args = append(args, cmd.Command)
	args = append(args, cmd.Args...)

	if nsenter == "" {
		nsenter = "nsenter"
	}
	return nsenter, args
}

// CommandLine renders cmd for diagnostics, including any namespace-entry
// prefix.
func CommandLine(cmd lib.Command) string {
	name, args := argv("nsenter", cmd)
	line := name
	for _, a := range args {
		line += " " + a
	}
	return line
}
