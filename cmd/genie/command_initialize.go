package main

import "github.com/spf13/cobra"

func newInitializeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "initialize",
		Aliases: []string{"init"},
		Short:   "Initialize the bottle (if necessary) only",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.manager.Initialize(cmd.Context())
		},
	}
}
