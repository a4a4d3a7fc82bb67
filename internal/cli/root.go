// Package cli implements gosha command-line parsing and commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gosha/internal/config"
	apperrors "gosha/internal/errors"
	"gosha/internal/logging"
)

// RootCommand handles argument parsing for the gosha CLI.
type RootCommand struct {
	cmd    *cobra.Command
	out    io.Writer
	errOut io.Writer
	in     io.Reader

	configPath string
	logLevel   string
	logger     *logrus.Logger
}

// NewRootCommand creates the gosha root command.
func NewRootCommand(out io.Writer, errOut io.Writer, in io.Reader) *RootCommand {
	root := &RootCommand{out: out, errOut: errOut, in: in, logger: logging.Discard()}
	root.cmd = &cobra.Command{
		Use:   "gosha",
		Short: "gosha computes and verifies SHA-256 checksums",
		// Arbitrary args so an unknown subcommand reaches RunE and is
		// reported as a usage error.
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: root.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q: %w", args[0], apperrors.ErrUsage)
			}
			return cmd.Help()
		},
	}
	root.cmd.SetOut(out)
	root.cmd.SetErr(errOut)
	root.cmd.SetIn(in)
	root.cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", err, apperrors.ErrUsage)
	})

	flags := root.cmd.PersistentFlags()
	flags.StringVar(&root.configPath, "config", "", "path to a YAML config file (default ~/.config/gosha/config.yaml)")
	flags.StringVar(&root.logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warning, error)")

	root.cmd.AddCommand(
		NewVersionCommand(out),
		root.newSumCommand(),
		root.newCheckCommand(),
		root.newStringCommand(),
		root.newFetchCommand(),
	)
	return root
}

// SetArgs sets command arguments.
func (r *RootCommand) SetArgs(args []string) { r.cmd.SetArgs(args) }

// Commands returns configured subcommands.
func (r *RootCommand) Commands() []*cobra.Command { return r.cmd.Commands() }

// Execute parses and runs commands.
func (r *RootCommand) Execute() error {
	return r.ExecuteContext(context.Background())
}

// ExecuteContext parses and runs commands; ctx is handed to long-running work.
func (r *RootCommand) ExecuteContext(ctx context.Context) error {
	return r.cmd.ExecuteContext(ctx)
}

// setup resolves settings for the command about to run: environment
// variables fill flags not given on the command line, then the config file
// fills whatever is still unset.
func (r *RootCommand) setup(cmd *cobra.Command, _ []string) error {
	fs := cmd.Flags()
	if err := config.SetFlagsFromEnv(fs, config.EnvPrefix); err != nil {
		return fmt.Errorf("%w: %w", err, apperrors.ErrUsage)
	}
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", err, apperrors.ErrUsage)
	}
	if err := cfg.Apply(fs); err != nil {
		return fmt.Errorf("%w: %w", err, apperrors.ErrUsage)
	}
	logger, err := logging.New(r.errOut, r.logLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", err, apperrors.ErrUsage)
	}
	r.logger = logger
	r.logger.WithFields(logrus.Fields{"command": cmd.Name(), "config": r.configPath}).Debug("settings resolved")
	return nil
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", err, apperrors.ErrUsage)
		}
		return nil
	}
}

// NewOSRootCommand creates a command wired to process standard streams.
func NewOSRootCommand() *RootCommand {
	return NewRootCommand(os.Stdout, os.Stderr, os.Stdin)
}
