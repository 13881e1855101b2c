package runner

import (
	"context"
	"io"
	"os"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "runner")

// Executor runs commands synchronously.
type Executor interface {
	// RunAndWait runs cmd with inherited stdio and returns its exit code.
	RunAndWait(ctx context.Context, cmd lib.Command) (int, error)

	// RunAndWaitForOutput runs cmd and returns its standard output.
	RunAndWaitForOutput(ctx context.Context, cmd lib.Command) (string, error)
}

// Runner runs commands as child processes of genie.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Env is the child environment; nil inherits genie's own environment.
	Env []string

	// NsenterPath is the program used for namespace entry.
	NsenterPath string
}

// NewRunner creates a Runner attached to the process's standard streams.
func NewRunner() *Runner {
	return &Runner{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		NsenterPath: "nsenter",
	}
}
