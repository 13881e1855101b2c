package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/arkane-systems/genie/pkg/lib"
)

func TestOutput_CapturesStdout(t *testing.T) {
	r, stderr := newTestRunner()

	// shell is available in test envs
	out, err := r.RunAndWaitForOutput(context.Background(),
		lib.Command{Command: "sh", Args: []string{"-c", "for i in 1 2 3; do echo $i; done; echo err 1>&2"}})
	if err != nil {
		t.Fatalf("RunAndWaitForOutput failed: %v", err)
	}

	if out != "1\n2\n3\n" {
		t.Fatalf("Output: wrong value %q", out)
	}
	if stderr.String() != "err\n" {
		t.Fatalf("stderr not inherited: %q", stderr.String())
	}
}

func TestOutput_NonzeroExitStillReturnsText(t *testing.T) {
	r, _ := newTestRunner()

	out, err := r.RunAndWaitForOutput(context.Background(),
		lib.Command{Command: "sh", Args: []string{"-c", "echo degraded; exit 1"}})
	if err != nil {
		t.Fatalf("RunAndWaitForOutput failed: %v", err)
	}
	if !strings.HasPrefix(out, "degraded") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestOutput_QuietDiscardsStderr(t *testing.T) {
	r, stderr := newTestRunner()

	out, err := r.RunAndWaitForOutput(context.Background(),
		lib.Command{Command: "sh", Args: []string{"-c", "echo out; echo err 1>&2"}, Quiet: true})
	if err != nil {
		t.Fatalf("RunAndWaitForOutput failed: %v", err)
	}
	if out != "out\n" {
		t.Fatalf("Output: wrong value %q", out)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected stderr discarded, got %q", stderr.String())
	}
}

func TestOutput_SpawnFailure(t *testing.T) {
	r, _ := newTestRunner()

	_, err := r.RunAndWaitForOutput(context.Background(), lib.Command{Command: "/nonexistent/genie-test-binary"})
	var exitErr *lib.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 127 {
		t.Fatalf("expected code 127, got %d", exitErr.Code)
	}
}

func newTestRunner() (*Runner, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	r := NewRunner()
	r.Stdin = nil
	r.Stdout = &stdout
	r.Stderr = &stderr
	return r, &stderr
}
