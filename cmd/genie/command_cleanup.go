package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete leftover genie state files; only use when no bottle is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := opts.manager.Cleanup(cmd.Context())
			for _, p := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), "deleted", p)
			}
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean up")
			}
			return nil
		},
	}
}
