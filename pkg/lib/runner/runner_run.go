package runner

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"

	"github.com/arkane-systems/genie/pkg/lib"
)

// RunAndWait starts cmd, waits for it to exit and returns its exit code.
// If the program cannot be started at all, the error is a *lib.ExitError
// with code 127 naming the command.
func (runner *Runner) RunAndWait(ctx context.Context, cmd lib.Command) (int, error) {
	c := runner.command(ctx, cmd)
	c.Stdout = runner.Stdout

	return runner.wait(cmd, c)
}

func (runner *Runner) command(ctx context.Context, cmd lib.Command) *exec.Cmd {
	name, args := argv(runner.NsenterPath, cmd)

	c := exec.CommandContext(ctx, name, args...)
	c.Env = runner.Env
	c.Stdin = runner.Stdin
	c.Stderr = runner.Stderr
	if cmd.Quiet {
		c.Stderr = io.Discard
	}
	return c
}

func (runner *Runner) wait(cmd lib.Command, c *exec.Cmd) (int, error) {
	logger.Debugf("running %s", CommandLine(cmd))

	if err := c.Start(); err != nil {
		return lib.CodeSpawnFailed, spawnError(cmd, err)
	}

	err := c.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			code = 128 + int(ws.Signal())
		}
		logger.Debugf("%s exited with %d", cmd.Command, code)
		return code, nil
	}

	// Non-exit error, e.g. a failed stdio copy
	return lib.CodeSpawnFailed, spawnError(cmd, err)
}

func spawnError(cmd lib.Command, err error) error {
	return &lib.ExitError{
		Code: lib.CodeSpawnFailed,
		Msg:  "error executing command '" + CommandLine(cmd) + "'",
		Err:  err,
	}
}
