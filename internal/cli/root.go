// Package cli implements the relnotes command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"relnotes/internal/config"
	"relnotes/internal/logger"
	"relnotes/internal/pipeline"
)

const defaultConfigPath = "config.yaml"

// generateFlags holds the flags of the root command.
type generateFlags struct {
	configPath      string
	output          string
	csvPath         string
	logLevel        string
	dryRun          bool
	allPages        bool
	lenientVersions bool
	validate        bool
	quiet           bool
}

// NewRootCmd builds the relnotes command tree.
func NewRootCmd() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "relnotes",
		Short: "Generate release notes from a Feishu bitable",
		Long: `Generate a Markdown release notes page from the release records kept in a
Feishu (Lark) multi-dimensional table.

Records are read from the table view named by URL in the config file, grouped
by release date, module, version and update type, and written to rel-notes.md.`,
		Example: `  # Generate rel-notes.md using ./config.yaml
  relnotes

  # Print the document instead of writing it
  relnotes --dry-run

  # Read every page of the view and also dump the rows as CSV
  relnotes --all-pages --csv rows.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "Path to the YAML config file")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Only log warnings and errors; show a spinner on terminals")
	pf.BoolVar(&flags.allPages, "all-pages", false, "Follow pagination and read every page of the view")

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "Markdown output path (overrides output.path)")
	f.StringVar(&flags.csvPath, "csv", "", "Also write the normalized rows as CSV to this path")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Print the document to stdout instead of writing files")
	f.BoolVar(&flags.lenientVersions, "lenient-versions", false, "Order malformed versions last instead of failing")
	f.BoolVar(&flags.validate, "validate", false, "Check the rendered document structure and fail on errors (overrides validation.enabled)")

	cmd.AddCommand(
		newRowsCmd(flags),
		newValidateCmd(),
		newInitCmd(),
	)

	return cmd
}

// Execute runs the command line and reports any error on stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		printError(os.Stderr, err)
	}

	return err
}

// loadConfig loads the config file and applies command line overrides.
// The default config path may be absent when everything comes from the environment.
func loadConfig(cmd *cobra.Command, flags *generateFlags) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:     flags.configPath,
		Optional: !cmd.Flags().Changed("config"),
	})
	if err != nil {
		return nil, err
	}

	if flags.output != "" {
		cfg.Output.Path = flags.output
	}

	if flags.csvPath != "" {
		cfg.Output.CSVPath = flags.csvPath
	}

	if flags.allPages {
		cfg.Search.AllPages = true
	}

	if flags.lenientVersions {
		cfg.Release.LenientVersions = true
	}

	if flags.validate {
		cfg.Validation.Enabled = true
	}

	switch {
	case flags.logLevel != "":
		cfg.Logging.Level = flags.logLevel
	case flags.quiet:
		cfg.Logging.Level = "warn"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		Writer: cmd.ErrOrStderr(),
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

func runGenerate(cmd *cobra.Command, flags *generateFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	log := newLogger(cmd, cfg)
	log.Debug("loaded config", "config", cfg.String())

	spin := newProgress(cmd.ErrOrStderr(), spinnerEnabled(cmd, cfg))
	defer spin.Stop()

	runner := pipeline.NewHTTPRunner(cfg, log, pipeline.Options{
		DryRun:   flags.dryRun,
		Out:      cmd.OutOrStdout(),
		Progress: spin.Update,
	})

	report, err := runner.Run(cmd.Context())
	spin.Stop()

	if err != nil {
		return err
	}

	printSummary(cmd, report)

	return nil
}

func printSummary(cmd *cobra.Command, report *pipeline.Report) {
	w := cmd.ErrOrStderr()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(w, "%s %d entries in %d sections (%d records, %d dropped without version)\n",
		green("✓"), report.Entries, report.Dates, report.Records, report.Stats.DroppedNoVersion)

	if report.Markdown != nil {
		state := "written"
		if !report.Markdown.Changed {
			state = "unchanged"
		}

		fmt.Fprintf(w, "  %s %s\n", cyan(report.Markdown.Path), state)
	}

	if report.CSV != nil {
		fmt.Fprintf(w, "  %s rows exported\n", cyan(report.CSV.Path))
	}
}
