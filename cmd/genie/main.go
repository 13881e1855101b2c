package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/arkane-systems/genie/pkg/lib"
)

func main() {
	root := NewRootCmd()

	if err := root.Execute(); err != nil {
		var exitErr *lib.ExitError
		if !errors.As(err, &exitErr) || !exitErr.Silent() {
			fmt.Fprintln(os.Stderr, "genie:", err)
		}
		os.Exit(lib.ExitCode(err))
	}
}
