package runner

import (
	"context"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/privilege"
)

// Chain runs cmd and turns a nonzero exit code into a fatal *lib.ExitError
// carrying that code, so that the whole invocation stops at the first
// failing step. The message always names the command.
func Chain(ctx context.Context, e Executor, cmd lib.Command, onError string) error {
	code, err := e.RunAndWait(ctx, cmd)
	if err != nil {
		return err
	}
	if code != 0 {
		if onError == "" {
			return lib.Fatal(code, "command execution failed; %s returned %d", cmd.Command, code)
		}
		return lib.Fatal(code, "%s (%s) returned %d", onError, cmd.Command, code)
	}
	return nil
}

// ChainInside chains argv inside the mount and pid namespaces of pid.
// Entering another process's namespaces needs real root, so the command
// runs under guard; if the caller already holds the guard it runs in that
// scope rather than nesting.
func ChainInside(ctx context.Context, e Executor, guard *privilege.Guard, pid int, argv []string, onError string) error {
	cmd := Inside(pid, argv...)

	if guard.Held() {
		return Chain(ctx, e, cmd, onError)
	}
	return guard.Do(func() error {
		return Chain(ctx, e, cmd, onError)
	})
}
