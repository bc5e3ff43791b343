// Package pipeline runs the release-notes generation end to end:
// fetch, normalize, group, render, validate and write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"relnotes/internal/config"
	"relnotes/internal/feishu"
	"relnotes/internal/formatter"
	"relnotes/internal/logger"
	"relnotes/internal/models"
	"relnotes/internal/normalizer"
	"relnotes/internal/output"
	"relnotes/internal/release"
	"relnotes/internal/validator"
)

// ErrValidation is returned when the rendered document fails its structural check.
var ErrValidation = errors.New("rendered document failed validation")

// Options controls a single run.
type Options struct {
	// DryRun writes the document to Out instead of the configured paths.
	DryRun bool
	Out    io.Writer
	// Progress, when set, is called with a short description as each phase starts.
	Progress func(phase string)
}

// Durations records the time spent in each phase.
type Durations struct {
	Fetch     time.Duration
	Normalize time.Duration
	Render    time.Duration
	Write     time.Duration
	Total     time.Duration
}

// Report summarizes a completed run.
type Report struct {
	RunID      string
	Records    int
	Pages      int
	Stats      normalizer.Stats
	Dates      int
	Entries    int
	Unrendered []string
	Validation *validator.ValidationResult
	Markdown   *output.Result
	CSV        *output.Result
	DryRun     bool
	Durations  Durations
}

// Runner executes the pipeline. Each phase completes before the next starts.
type Runner struct {
	cfg     *config.Config
	fetcher *feishu.Fetcher
	logger  *logger.Logger
	opts    Options
	runID   string
}

// NewRunner creates a runner that reads through client.
func NewRunner(cfg *config.Config, client feishu.Client, log *logger.Logger, opts Options) *Runner {
	if log == nil {
		log = logger.Discard()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	runID := uuid.NewString()
	log = log.With("run_id", runID)

	return &Runner{
		cfg: cfg,
		fetcher: feishu.NewFetcher(client, log, feishu.Options{
			PageSize: cfg.Search.PageSize,
			AllPages: cfg.Search.AllPages,
		}),
		logger: log,
		opts:   opts,
		runID:  runID,
	}
}

// NewHTTPRunner creates a runner backed by the Feishu HTTP client configured from cfg.
func NewHTTPRunner(cfg *config.Config, log *logger.Logger, opts Options) *Runner {
	if log == nil {
		log = logger.Discard()
	}

	client := feishu.NewHTTPClient(cfg.BaseURL, log, feishu.WithTimeout(cfg.HTTP.Timeout()))

	return NewRunner(cfg, client, log, opts)
}

// RunID identifies this runner's log records.
func (r *Runner) RunID() string {
	return r.runID
}

func (r *Runner) progress(phase string) {
	if r.opts.Progress != nil {
		r.opts.Progress(phase)
	}
}

// Rows fetches and normalizes the source records.
func (r *Runner) Rows(ctx context.Context, report *Report) ([]models.Row, error) {
	src, err := r.cfg.Source()
	if err != nil {
		return nil, fmt.Errorf("parsing source url: %w", err)
	}

	r.progress("Fetching records")
	r.logger.Info("🚀 Fetching release records", "node", src.NodeToken, "table", src.TableID, "view", src.ViewID)

	start := time.Now()

	fetched, err := r.fetcher.Fetch(ctx, feishu.Credentials{AppID: r.cfg.AppID, AppSecret: r.cfg.AppSecret}, src)
	if err != nil {
		return nil, err
	}

	report.Records = len(fetched.Records)
	report.Pages = fetched.Pages
	report.Durations.Fetch = time.Since(start)

	r.logger.Info(fmt.Sprintf("✅ Fetched %d records in %v", report.Records, report.Durations.Fetch))

	r.progress("Normalizing records")

	start = time.Now()

	normalized, err := normalizer.NewProcessor(r.cfg.Fields, r.logger).Process(fetched.Records)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", feishu.ErrFetch, err)
	}

	report.Stats = normalized.Stats
	report.Durations.Normalize = time.Since(start)

	if normalized.Stats.DroppedNoVersion > 0 {
		r.logger.Info("dropped rows without version", "count", normalized.Stats.DroppedNoVersion)
	}

	return normalized.Rows, nil
}

// Render groups rows and renders the release notes, validating the result
// when validation is enabled.
func (r *Runner) Render(rows []models.Row, report *Report) (string, error) {
	r.progress("Rendering release notes")

	start := time.Now()

	tree, err := release.Build(rows, release.Options{
		ModuleOrder:     r.cfg.Release.ModuleOrder,
		LenientVersions: r.cfg.Release.LenientVersions,
		UndatedLabel:    r.cfg.Release.UndatedLabel,
	})
	if err != nil {
		return "", err
	}

	report.Dates = len(tree.Dates)
	report.Entries = tree.Len()

	report.Unrendered = formatter.UnrenderedTypes(tree)
	if len(report.Unrendered) > 0 {
		r.logger.Warn("⚠️  update types without a display slot are left out", "types", report.Unrendered)
	}

	doc := formatter.NewRenderer().RenderString(tree)
	report.Durations.Render = time.Since(start)

	if !r.cfg.Validation.Enabled {
		return doc, nil
	}

	result := validator.NewReleaseNotesValidator(validator.Options{UndatedLabel: r.cfg.Release.UndatedLabel}).Validate(doc)
	report.Validation = result

	for _, w := range result.Warnings {
		r.logger.Warn(w)
	}

	if !result.IsValid {
		for _, e := range result.Errors {
			r.logger.Error("validation error", "line", e.Line, "field", e.Field, "value", e.Value, "message", e.Message)
		}

		return "", fmt.Errorf("%w: %w", ErrValidation, result.Err())
	}

	r.logger.Debug(result.String())

	return doc, nil
}

// Run executes every phase and writes the outputs. Nothing is written when
// an earlier phase fails.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: r.runID, DryRun: r.opts.DryRun}

	rows, err := r.Rows(ctx, report)
	if err != nil {
		return nil, err
	}

	doc, err := r.Render(rows, report)
	if err != nil {
		return nil, err
	}

	writeStart := time.Now()

	if r.opts.DryRun {
		if _, err := io.WriteString(r.opts.Out, doc); err != nil {
			return nil, fmt.Errorf("writing document: %w", err)
		}
	} else {
		if err := r.write(doc, rows, report); err != nil {
			return nil, err
		}
	}

	report.Durations.Write = time.Since(writeStart)
	report.Durations.Total = time.Since(start)

	r.logger.Info("✨ Release notes generated",
		"dates", report.Dates,
		"entries", report.Entries,
		"duration", report.Durations.Total,
	)

	return report, nil
}

// write stores the CSV dump before the Markdown so a failed CSV write leaves
// the release notes untouched.
func (r *Runner) write(doc string, rows []models.Row, report *Report) error {
	r.progress("Writing output")

	if r.cfg.Output.CSVPath != "" {
		res, err := output.WriteRowsCSV(r.cfg.Output.CSVPath, rows)
		if err != nil {
			return fmt.Errorf("writing %s: %w", r.cfg.Output.CSVPath, err)
		}

		report.CSV = res
	}

	res, err := output.WriteFile(r.cfg.Output.Path, []byte(doc))
	if err != nil {
		return fmt.Errorf("writing %s: %w", r.cfg.Output.Path, err)
	}

	report.Markdown = res

	if res.Changed {
		r.logger.Info("💾 Wrote release notes", "path", res.Path, "bytes", res.Bytes)
	} else {
		r.logger.Info("release notes unchanged", "path", res.Path)
	}

	return nil
}
