package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"relnotes/internal/config"
	"relnotes/internal/feishu"
	"relnotes/internal/pipeline"
	"relnotes/internal/release"
	"relnotes/internal/validator"
)

var configErrors = []error{
	config.ErrMissingAppID,
	config.ErrMissingAppSecret,
	config.ErrMissingURL,
	config.ErrMissingNodeToken,
	config.ErrMissingTableID,
	config.ErrMissingViewID,
	config.ErrInvalidField,
	config.ErrConfigFileMissing,
}

// errorCategory names the failure kind shown before the error message.
func errorCategory(err error) string {
	switch {
	case errors.Is(err, feishu.ErrAuthentication):
		return "authentication failed"
	case errors.Is(err, feishu.ErrResourceResolution):
		return "resource resolution failed"
	case errors.Is(err, feishu.ErrFetch):
		return "fetch failed"
	case errors.Is(err, release.ErrDataQuality):
		return "data quality error"
	case errors.Is(err, pipeline.ErrValidation), errors.Is(err, validator.ErrInvalidDocument):
		return "validation failed"
	}

	for _, target := range configErrors {
		if errors.Is(err, target) {
			return "configuration error"
		}
	}

	return "error"
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s %s: %v\n", red("✗"), red(errorCategory(err)), err)
}
