// Package validator checks the structure of rendered release notes.
package validator

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"relnotes/internal/formatter"
	"relnotes/internal/release"
	"relnotes/pkg/utils"
)

// ErrInvalidDocument is returned by ValidationResult.Err for documents with errors.
var ErrInvalidDocument = errors.New("invalid release notes document")

var (
	datePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	bulletPattern = regexp.MustCompile(`^- \[(.*)\](?: (.+))?$`)
)

var frontMatter = []string{"---", "hide:", "  - toc", "---"}

var text = utils.NewStringHelper()

func truncate(s string) string {
	return text.TruncateString(s, 50)
}

// ValidationError represents a validation error with context.
type ValidationError struct {
	Field   string
	Value   string
	Pattern string
	Message string
	Line    int
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats counts the sections found in a document.
type ValidationStats struct {
	Dates    int
	Versions int
	Entries  int
}

// Options configures a ReleaseNotesValidator.
type Options struct {
	// UndatedLabel is accepted as the heading of the final date section.
	UndatedLabel string
}

// ReleaseNotesValidator checks headings, bullets and section order.
type ReleaseNotesValidator struct {
	undatedLabel string
	labelRank    map[string]int
}

// NewReleaseNotesValidator creates a new validator.
func NewReleaseNotesValidator(opts Options) *ReleaseNotesValidator {
	if opts.UndatedLabel == "" {
		opts.UndatedLabel = release.DefaultUndatedLabel
	}

	v := &ReleaseNotesValidator{
		undatedLabel: opts.UndatedLabel,
		labelRank:    make(map[string]int),
	}

	for i, label := range formatter.HeadingLabels() {
		v.labelRank[label] = i
	}

	return v
}

// ValidateReleaseNotes validates doc with default options.
func ValidateReleaseNotes(doc string) *ValidationResult {
	return NewReleaseNotesValidator(Options{}).Validate(doc)
}

// docState tracks the position of the scanner within the section hierarchy.
type docState struct {
	titleSeen   bool
	lastDate    string
	undatedSeen bool
	inDate      bool
	inVersion   bool
	versionLine int
	versionHead string
	entries     int
	lastLabel   int
	// inEntry is set after a bullet until the next blank line.
	inEntry bool
}

// Validate checks doc and reports every problem found, with line numbers.
func (v *ReleaseNotesValidator) Validate(doc string) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}

	lines := strings.Split(doc, "\n")

	start := v.checkFrontMatter(lines, result)
	st := &docState{lastLabel: -1}

	for i := start; i < len(lines); i++ {
		lineNum := i + 1
		line := lines[i]

		if strings.TrimSpace(line) == "" {
			st.inEntry = false

			continue
		}

		if st.inEntry && !bulletPattern.MatchString(line) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: entry text continues on a new line", lineNum))

			continue
		}

		switch {
		case strings.HasPrefix(line, "#### "):
			v.checkTypeHeading(strings.TrimPrefix(line, "#### "), lineNum, st, result)
		case strings.HasPrefix(line, "### "):
			v.closeVersion(st, result)
			v.checkVersionHeading(strings.TrimPrefix(line, "### "), lineNum, st, result)
		case strings.HasPrefix(line, "## "):
			v.closeVersion(st, result)
			v.checkDateHeading(strings.TrimPrefix(line, "## "), lineNum, st, result)
		case strings.HasPrefix(line, "# "):
			if st.titleSeen || st.inDate {
				result.addError(ValidationError{Line: lineNum, Field: "title", Value: line, Message: "unexpected top-level heading"})
			}

			st.titleSeen = true
		case strings.HasPrefix(line, "- "):
			v.checkBullet(line, lineNum, st, result)
		case strings.HasPrefix(line, "#"):
			result.addError(ValidationError{Line: lineNum, Field: "heading", Value: line, Message: "unsupported heading level"})
		default:
			if st.inVersion && st.entries > 0 {
				result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: entry text continues on a new line", lineNum))

				continue
			}

			if !st.titleSeen || st.inDate {
				result.addError(ValidationError{Line: lineNum, Value: truncate(line), Message: "unexpected text"})
			}
		}
	}

	v.closeVersion(st, result)

	if !st.titleSeen {
		result.addError(ValidationError{Field: "title", Message: "document has no title heading"})
	}

	return result
}

func (v *ReleaseNotesValidator) checkFrontMatter(lines []string, result *ValidationResult) int {
	for i, want := range frontMatter {
		if i >= len(lines) || lines[i] != want {
			got := ""
			if i < len(lines) {
				got = lines[i]
			}

			result.addError(ValidationError{
				Line:    i + 1,
				Field:   "front matter",
				Value:   got,
				Pattern: want,
				Message: "front matter must hide the table of contents",
			})

			return 0
		}
	}

	return len(frontMatter)
}

func (v *ReleaseNotesValidator) checkDateHeading(heading string, lineNum int, st *docState, result *ValidationResult) {
	result.Stats.Dates++

	st.inDate = true
	st.inVersion = false

	if !st.titleSeen {
		result.addError(ValidationError{Line: lineNum, Field: "date", Value: heading, Message: "date section before title"})
	}

	if st.undatedSeen {
		result.addError(ValidationError{Line: lineNum, Field: "date", Value: heading, Message: fmt.Sprintf("section follows the %q section", v.undatedLabel)})
	}

	if heading == v.undatedLabel {
		st.undatedSeen = true

		return
	}

	if !datePattern.MatchString(heading) {
		result.addError(ValidationError{Line: lineNum, Field: "date", Value: heading, Pattern: "YYYY-MM-DD", Message: "date heading invalid format"})

		return
	}

	if _, err := time.Parse("2006-01-02", heading); err != nil {
		result.addError(ValidationError{Line: lineNum, Field: "date", Value: heading, Message: "date heading is not a calendar date"})

		return
	}

	if st.lastDate != "" && heading >= st.lastDate {
		result.addError(ValidationError{
			Line:    lineNum,
			Field:   "date",
			Value:   heading,
			Message: fmt.Sprintf("dates must be strictly descending, previous section is %s", st.lastDate),
		})
	}

	st.lastDate = heading
}

func (v *ReleaseNotesValidator) checkVersionHeading(heading string, lineNum int, st *docState, result *ValidationResult) {
	result.Stats.Versions++

	st.inVersion = true
	st.versionLine = lineNum
	st.versionHead = heading
	st.entries = 0
	st.lastLabel = -1

	if trimmed := strings.TrimRight(heading, " \t"); trimmed != heading {
		result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: version heading has trailing whitespace", lineNum))
		heading = trimmed
	}

	if !st.inDate {
		result.addError(ValidationError{Line: lineNum, Field: "version", Value: heading, Message: "version section outside a date section"})
	}

	sep := strings.LastIndex(heading, " ")
	switch {
	case sep < 0 || sep == len(heading)-1:
		result.addError(ValidationError{Line: lineNum, Field: "version", Value: heading, Pattern: "{module} {version}", Message: "version heading has no version"})
	case strings.TrimSpace(heading[:sep]) == "":
		result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: version %q has no module", lineNum, heading[sep+1:]))
	}
}

func (v *ReleaseNotesValidator) checkTypeHeading(label string, lineNum int, st *docState, result *ValidationResult) {
	if !st.inVersion {
		result.addError(ValidationError{Line: lineNum, Field: "update type", Value: label, Message: "update type heading outside a version section"})

		return
	}

	rank, ok := v.labelRank[label]
	if !ok {
		result.addError(ValidationError{
			Line:    lineNum,
			Field:   "update type",
			Value:   label,
			Pattern: strings.Join(formatter.HeadingLabels(), " | "),
			Message: "unknown update type heading",
		})

		return
	}

	if rank <= st.lastLabel {
		result.addError(ValidationError{Line: lineNum, Field: "update type", Value: label, Message: "update type headings out of display order"})
	}

	st.lastLabel = rank
}

func (v *ReleaseNotesValidator) checkBullet(line string, lineNum int, st *docState, result *ValidationResult) {
	m := bulletPattern.FindStringSubmatch(line)
	if m == nil && st.inVersion && strings.HasPrefix(line, "- [") {
		result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: entry feature name continues on a new line", lineNum))

		st.inEntry = true
		st.entries++
		result.Stats.Entries++

		return
	}

	if m == nil {
		result.addError(ValidationError{Line: lineNum, Field: "entry", Value: truncate(line), Pattern: "- [feature] params", Message: "malformed entry"})

		return
	}

	if !st.inVersion {
		result.addError(ValidationError{Line: lineNum, Field: "entry", Value: truncate(line), Message: "entry outside a version section"})

		return
	}

	if m[1] == "" {
		result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: entry has an empty feature name", lineNum))
	}

	st.inEntry = true
	st.entries++
	result.Stats.Entries++
}

func (v *ReleaseNotesValidator) closeVersion(st *docState, result *ValidationResult) {
	if st.inVersion && st.entries == 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("line %d: version section %q has no entries", st.versionLine, st.versionHead))
	}

	st.inVersion = false
}

func (r *ValidationResult) addError(err ValidationError) {
	r.IsValid = false
	r.Errors = append(r.Errors, err)
}

// Err returns nil for a valid document, otherwise an error wrapping
// ErrInvalidDocument that describes the first problem.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}

	first := r.Errors[0]
	if first.Line > 0 {
		return fmt.Errorf("%w: %d problem(s), first at line %d: %s", ErrInvalidDocument, len(r.Errors), first.Line, first.Message)
	}

	return fmt.Errorf("%w: %d problem(s), first: %s", ErrInvalidDocument, len(r.Errors), first.Message)
}

// String returns string representation of validation result.
func (r *ValidationResult) String() string {
	status := "✅ VALID"
	if !r.IsValid {
		status = "❌ INVALID"
	}

	return fmt.Sprintf(
		"%s | Dates: %d | Versions: %d | Entries: %d | Errors: %d | Warnings: %d",
		status,
		r.Stats.Dates,
		r.Stats.Versions,
		r.Stats.Entries,
		len(r.Errors),
		len(r.Warnings),
	)
}

// PrintErrors prints validation errors in readable format.
func (r *ValidationResult) PrintErrors(w io.Writer) {
	if len(r.Errors) == 0 {
		return
	}

	fmt.Fprintln(w, "❌ Validation Errors:")

	for _, err := range r.Errors {
		if err.Line > 0 {
			fmt.Fprintf(w, "  Line %d", err.Line)

			if err.Field != "" {
				fmt.Fprintf(w, " [%s]", err.Field)
			}

			fmt.Fprintf(w, ": %s\n", err.Message)

			if err.Value != "" {
				fmt.Fprintf(w, "    Found: %q\n", err.Value)
			}

			if err.Pattern != "" {
				fmt.Fprintf(w, "    Expected pattern: %s\n", err.Pattern)
			}
		} else {
			fmt.Fprintf(w, "  %s\n", err.Message)
		}
	}
}

// PrintWarnings prints validation warnings.
func (r *ValidationResult) PrintWarnings(w io.Writer) {
	if len(r.Warnings) == 0 {
		return
	}

	fmt.Fprintln(w, "⚠️  Validation Warnings:")

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s\n", warn)
	}
}
