package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"relnotes/internal/formatter"
	"relnotes/internal/output"
	"relnotes/internal/pipeline"
	"relnotes/internal/release"
)

func newRowsCmd(flags *generateFlags) *cobra.Command {
	var (
		format string
		sorted bool
	)

	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Print the normalized release rows",
		Long: `Fetch the configured table view, normalize its records and print the
resulting rows. Rows without a version are dropped, as in the release notes.`,
		Example: `  relnotes rows
  relnotes rows --format table --sorted`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "table" {
				return fmt.Errorf("unknown format %q (expected csv or table)", format)
			}

			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			spin := newProgress(cmd.ErrOrStderr(), spinnerEnabled(cmd, cfg))
			defer spin.Stop()

			runner := pipeline.NewHTTPRunner(cfg, newLogger(cmd, cfg), pipeline.Options{Progress: spin.Update})

			rows, err := runner.Rows(cmd.Context(), &pipeline.Report{})
			spin.Stop()

			if err != nil {
				return err
			}

			if sorted {
				rows, err = release.Sort(rows, release.Options{
					ModuleOrder:     cfg.Release.ModuleOrder,
					LenientVersions: cfg.Release.LenientVersions,
				})
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if format == "table" {
				_, err = io.WriteString(out, formatter.FormatRowsTable(rows)+"\n")

				return err
			}

			return output.EncodeRowsCSV(out, rows)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv or table")
	cmd.Flags().BoolVar(&sorted, "sorted", false, "Print rows in release notes order")

	return cmd
}
