package main

import "github.com/spf13/cobra"

func newShellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Initialize the bottle (if necessary), and run a shell in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.manager.Shell(cmd.Context())
		},
	}
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Initialize the bottle (if necessary), and open a logon prompt in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.manager.Login(cmd.Context())
		},
	}
}
