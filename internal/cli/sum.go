package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gosha/internal/checksum"
	"gosha/internal/config"
	apperrors "gosha/internal/errors"
)

// hashFlags are the reading and scheduling settings shared by sum and check.
type hashFlags struct {
	workers            int
	chunkSize          int
	checkpointDir      string
	checkpointInterval int64
	progress           bool
}

func (h *hashFlags) register(fs *pflag.FlagSet) {
	defaults := config.Default()
	fs.IntVarP(&h.workers, "workers", "j", defaults.Workers, "number of files hashed concurrently")
	fs.StringVar(&h.checkpointDir, "checkpoint-dir", "", "directory for resumable checkpoints (disabled when empty)")
	fs.Int64Var(&h.checkpointInterval, "checkpoint-interval", defaults.CheckpointInterval, "bytes hashed between checkpoints")
	h.registerStream(fs)
}

// registerStream registers only the flags that apply to a single stream.
func (h *hashFlags) registerStream(fs *pflag.FlagSet) {
	defaults := config.Default()
	if h.workers == 0 {
		h.workers = defaults.Workers
	}
	if h.checkpointInterval == 0 {
		h.checkpointInterval = defaults.CheckpointInterval
	}
	fs.IntVar(&h.chunkSize, "chunk-size", defaults.ChunkSize, "read buffer size in bytes")
	fs.BoolVar(&h.progress, "progress", false, "print progress to stderr")
}

func (r *RootCommand) options(h hashFlags) (checksum.Options, error) {
	cfg := config.Config{
		Workers:            h.workers,
		ChunkSize:          h.chunkSize,
		CheckpointInterval: h.checkpointInterval,
	}
	if err := cfg.Validate(); err != nil {
		return checksum.Options{}, fmt.Errorf("%w: %w", err, apperrors.ErrUsage)
	}
	opts := checksum.Options{
		ChunkSize:          h.chunkSize,
		Workers:            h.workers,
		CheckpointDir:      h.checkpointDir,
		CheckpointInterval: h.checkpointInterval,
		Stdin:              r.in,
		Logger:             r.logger,
	}
	if h.progress {
		opts.Progress = r.errOut
	}
	return opts, nil
}

func (r *RootCommand) newSumCommand() *cobra.Command {
	var (
		flags hashFlags
		tag   bool
	)
	cmd := &cobra.Command{
		Use:   "sum [file...]",
		Short: "Print SHA-256 checksums of files (standard input when none are given)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{checksum.StdinName}
			}
			stdin := 0
			for _, arg := range args {
				if arg == checksum.StdinName {
					stdin++
				}
			}
			if stdin > 1 {
				return fmt.Errorf("standard input can be named only once: %w", apperrors.ErrUsage)
			}
			opts, err := r.options(flags)
			if err != nil {
				return err
			}

			r.logger.WithFields(logrus.Fields{"files": len(args), "workers": opts.Workers}).Debug("hashing")
			results, err := checksum.Files(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			format := checksum.FormatLine
			if tag {
				format = checksum.FormatTagLine
			}
			for _, res := range results {
				if _, err := fmt.Fprintln(r.out, format(res)); err != nil {
					return fmt.Errorf("write checksum output: %w", err)
				}
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&tag, "tag", false, "print BSD-style tagged lines")
	return cmd
}

func (r *RootCommand) newStringCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "string <text>",
		Short: "Print the SHA-256 checksum of a literal string",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(_ *cobra.Command, args []string) error {
			if _, err := fmt.Fprintln(r.out, checksum.String(args[0])); err != nil {
				return fmt.Errorf("write checksum output: %w", err)
			}
			return nil
		},
	}
}
