package runner

import (
	"context"
	"strings"

	"github.com/arkane-systems/genie/pkg/lib"
)

// RunAndWaitForOutput runs cmd like RunAndWait but captures its standard
// output instead of inheriting it. The exit code is not reported; callers
// interpret the text.
func (runner *Runner) RunAndWaitForOutput(ctx context.Context, cmd lib.Command) (string, error) {
	var out strings.Builder

	c := runner.command(ctx, cmd)
	c.Stdout = &out

	if _, err := runner.wait(cmd, c); err != nil {
		return "", err
	}
	return out.String(), nil
}
