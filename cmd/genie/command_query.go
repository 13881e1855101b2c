package main

import (
	"context"
	"fmt"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/spf13/cobra"
)

func newIsRunningCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "is-running",
		Short: "Check whether systemd is running in genie, or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cmd, opts.manager.IsRunning)
		},
	}
}

func newIsInBottleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "is-in-bottle",
		Short: "Check whether currently executing within the genie bottle, or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cmd, opts.manager.IsInBottle)
		},
	}
}

// report prints the answer of a query and exits with its code.
func report(cmd *cobra.Command, query func(context.Context) (string, int, error)) error {
	text, code, err := query(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return lib.ExitWith(code)
}
