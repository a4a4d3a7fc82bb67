package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gosha/internal/buildinfo"
	"gosha/internal/checksum"
	apperrors "gosha/internal/errors"
	"gosha/internal/fetch"
	"gosha/internal/hash"
)

func (r *RootCommand) newFetchCommand() *cobra.Command {
	var (
		flags        hashFlags
		output       string
		expect       string
		maxRedirects int
		tag          bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download a URL and print the SHA-256 checksum of its body",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := r.options(flags)
			if err != nil {
				return err
			}
			if maxRedirects < 1 {
				return fmt.Errorf("max-redirects must be at least 1, got %d: %w", maxRedirects, apperrors.ErrUsage)
			}
			fo := fetch.Options{
				Output:       output,
				MaxRedirects: maxRedirects,
				UserAgent:    "gosha/" + buildinfo.Get().Version,
				Checksum:     opts,
			}
			if expect != "" {
				sum, err := hash.ParseDigest(expect)
				if err != nil {
					return fmt.Errorf("--sha256: %w: %w", err, apperrors.ErrUsage)
				}
				fo.Expect = &sum
			}

			res, err := fetch.URL(cmd.Context(), args[0], fo)
			if err != nil {
				return err
			}
			format := checksum.FormatLine
			if tag {
				format = checksum.FormatTagLine
			}
			if _, err := fmt.Fprintln(r.out, format(res)); err != nil {
				return fmt.Errorf("write checksum output: %w", err)
			}
			return nil
		},
	}
	flags.registerStream(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "save the body to this file")
	cmd.Flags().StringVar(&expect, "sha256", "", "expected digest; a mismatch fails and nothing is saved")
	cmd.Flags().IntVar(&maxRedirects, "max-redirects", fetch.DefaultMaxRedirects, "redirects to follow before giving up")
	cmd.Flags().BoolVar(&tag, "tag", false, "print a BSD-style tagged line")
	return cmd
}
