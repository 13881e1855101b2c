// runinwsl runs a command inside the bottle in a given working directory.
// genie invokes it through machinectl, which always starts in the user's
// home directory.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/runner"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(runner.NewRunner()).Execute(); err != nil {
		var exitErr *lib.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Silent() {
			fmt.Fprintln(os.Stderr, "runinwsl:", err)
		}
		os.Exit(lib.ExitCode(err))
	}
}

func newRootCmd(exec runner.Executor) *cobra.Command {
	return &cobra.Command{
		Use:   "runinwsl <ewd> <command> [args...]",
		Short: "Run a command in a directory; should only be called by genie",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return lib.Fatal(lib.CodeSpawnFailed, "error in usage; should only be called by genie")
			}
			return nil
		},
		// everything after the directory belongs to the command
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, exec, args[0], args[1:])
		},
	}
}

func run(cmd *cobra.Command, exec runner.Executor, dir string, argv []string) error {
	if err := os.Chdir(dir); err != nil {
		return &lib.ExitError{Code: lib.CodeSpawnFailed, Msg: "changing directory", Err: err}
	}

	code, err := exec.RunAndWait(cmd.Context(), lib.Command{Command: argv[0], Args: argv[1:]})
	if err != nil {
		return err
	}
	return lib.ExitWith(code)
}
