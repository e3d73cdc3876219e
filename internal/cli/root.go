// Package cli implements the shipit command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tOgg1/shipit/internal/logging"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

// Execute runs the root command until completion or an interrupt.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "shipit",
		Short:         "Deploy releases to SSH servers",
		Long:          "shipit fetches a repository, uploads a release to every server of an environment and switches the current symlink.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initLogging()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "deploy file (default is ./shipitfile.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "override logging format (json, console)")

	cmd.AddCommand(
		newDeployCmd(opts),
		newRollbackCmd(opts),
		newPendingCmd(opts),
		newRunCmd(opts),
		newCheckCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// initLogging applies the flag overrides before any config is read so
// load errors are logged in the requested format.
func (o *globalOptions) initLogging() error {
	cfg := logging.DefaultConfig()
	if o.logLevel != "" {
		cfg.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logging.Init(cfg)
	return nil
}
