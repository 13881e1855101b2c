package lib

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Exit codes reported by genie besides the pass-through codes of the
// commands it runs.
const (
	CodeSpawnFailed = 127
	CodeHostsFile   = 130

	CodeInvalid   = int(unix.EINVAL)
	CodeCancelled = int(unix.ECANCELED)
	CodeBadFile   = int(unix.EBADF)
	CodeNoPerm    = int(unix.EPERM)
)

// ExitError is a fatal outcome carrying the exit code for the whole
// invocation. It travels up to the command dispatcher, which is the only
// place that terminates the process.
type ExitError struct {
	Code int
	Msg  string
	Err  error
}

func (e *ExitError) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("exit status %d", e.Code)
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Silent reports whether the dispatcher should exit without printing.
func (e *ExitError) Silent() bool {
	return e.Msg == "" && e.Err == nil
}

// Fatal returns an ExitError with a formatted message.
func Fatal(code int, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// ExitWith returns a silent ExitError, used to pass a command's exit code
// through as genie's own.
func ExitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code}
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
