package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newExecCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec [--] <command> [args...]",
		Short: "Initialize the bottle (if necessary), and run the specified command in it",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return errors.New("command to execute is required; use -- to separate genie flags from the command")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.manager.Exec(cmd.Context(), args)
		},
	}
	// flags after the command belong to it
	cmd.Flags().SetInterspersed(false)
	return cmd
}
