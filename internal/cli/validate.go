package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"relnotes/internal/release"
	"relnotes/internal/validator"
)

func newValidateCmd() *cobra.Command {
	var undatedLabel string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check the structure of a release notes file",
		Long: `Check that a release notes file has the expected front matter, title,
date sections in descending order, version sections, update type headings and
entry bullets. Problems are reported with line numbers.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			result := validator.NewReleaseNotesValidator(validator.Options{UndatedLabel: undatedLabel}).Validate(string(data))

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.String())
			result.PrintWarnings(out)
			result.PrintErrors(out)

			return result.Err()
		},
	}

	cmd.Flags().StringVar(&undatedLabel, "undated-label", release.DefaultUndatedLabel, "Heading accepted for the undated section")

	return cmd
}
