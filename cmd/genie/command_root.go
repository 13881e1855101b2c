package main

import (
	"os"

	"github.com/arkane-systems/genie/pkg/lib"
	"github.com/arkane-systems/genie/pkg/lib/bottle"
	"github.com/arkane-systems/genie/pkg/lib/config"
	"github.com/arkane-systems/genie/pkg/lib/system"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	verbose    bool
	configPath string

	// prepare runs before every bottle command and sets manager.
	prepare func(opts *rootOptions) error
	manager *bottle.Manager
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{prepare: prepare})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "genie",
		Short:         "Handles transitions to the \"bottle\" namespace for systemd under WSL",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.verbose)
			return opts.prepare(opts)
		},
	}

	addGlobalFlags(root.PersistentFlags(), opts)

	root.AddCommand(newInitializeCmd(opts))
	root.AddCommand(newShellCmd(opts))
	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newExecCmd(opts))
	root.AddCommand(newShutdownCmd(opts))
	root.AddCommand(newIsRunningCmd(opts))
	root.AddCommand(newIsInBottleCmd(opts))
	root.AddCommand(newCleanupCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func addGlobalFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Display verbose progress messages")
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "Configuration file")
}

func setupLogging(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

// prepare checks that genie can run here, then loads the configuration and
// captures the invoking user's session.
func prepare(opts *rootOptions) error {
	if err := system.NewHost().Check(os.Geteuid()); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return &lib.ExitError{Code: lib.CodeBadFile, Msg: "reading " + opts.configPath, Err: err}
	}

	session, err := lib.NewSession(opts.verbose)
	if err != nil {
		return err
	}
	logrus.WithField("session", session.ID).Debugf("genie %s invoked by %s", version, session.UserName)

	opts.manager = bottle.NewManager(session, cfg)
	return nil
}
