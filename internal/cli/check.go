package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"gosha/internal/checksum"
	apperrors "gosha/internal/errors"
)

func (r *RootCommand) newCheckCommand() *cobra.Command {
	var (
		flags hashFlags
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "check [list]",
		Short: "Verify files against a checksum list (standard input when none is given)",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := r.options(flags)
			if err != nil {
				return err
			}

			var list io.Reader = r.in
			name := checksum.StdinName
			if len(args) == 1 && args[0] != checksum.StdinName {
				name = args[0]
				f, err := os.Open(name)
				if err != nil {
					return fmt.Errorf("open checksum list: %w: %w", err, apperrors.ErrIO)
				}
				defer func() { _ = f.Close() }()
				list = f
			} else {
				// Stdin carries the list, so listed files cannot be read from it.
				opts.Stdin = eofReader{}
			}
			entries, err := checksum.ParseList(list)
			if err != nil {
				return fmt.Errorf("%s: %w: %w", name, err, apperrors.ErrUsage)
			}
			if len(entries) == 0 {
				return fmt.Errorf("%s: no checksum lines found: %w", name, apperrors.ErrUsage)
			}

			results, err := checksum.Verify(cmd.Context(), entries, opts)
			if err != nil {
				return err
			}

			var failed, unreadable int
			for _, v := range results {
				switch v.Status {
				case checksum.StatusFailed:
					failed++
				case checksum.StatusUnreadable:
					unreadable++
					r.logger.WithError(v.Err).WithField("file", v.Name).Warn("could not verify")
				}
				if quiet && v.Status == checksum.StatusOK {
					continue
				}
				if _, err := fmt.Fprintf(r.out, "%s: %s\n", v.Name, v.Status); err != nil {
					return fmt.Errorf("write check output: %w", err)
				}
			}

			if unreadable > 0 {
				_, _ = fmt.Fprintf(r.errOut, "WARNING: %d listed file(s) could not be read\n", unreadable)
			}
			if failed > 0 {
				_, _ = fmt.Fprintf(r.errOut, "WARNING: %d computed checksum(s) did NOT match\n", failed)
			}
			if failed+unreadable > 0 {
				return fmt.Errorf("%d of %d file(s) failed verification: %w", failed+unreadable, len(results), apperrors.ErrMismatch)
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print OK lines")
	return cmd
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
