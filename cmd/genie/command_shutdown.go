package main

import "github.com/spf13/cobra"

func newShutdownCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Shut down systemd and exit the bottle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.manager.Shutdown(cmd.Context())
		},
	}
}
