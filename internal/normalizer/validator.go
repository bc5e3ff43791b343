package normalizer

import (
	"errors"

	"relnotes/internal/models"
)

// ErrMissingVersion marks a row without a version. Such rows are dropped, not reported.
var ErrMissingVersion = errors.New("row has no version")

// Validator decides which rows are retained.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns ErrMissingVersion for rows that must be dropped.
func (v *Validator) Validate(row models.Row) error {
	if row.Version == "" {
		return ErrMissingVersion
	}

	return nil
}
