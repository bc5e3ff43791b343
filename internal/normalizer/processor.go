// Package normalizer turns raw bitable records into flat, typed release rows.
package normalizer

import (
	"errors"
	"fmt"

	"relnotes/internal/logger"
	"relnotes/internal/models"
)

// Stats summarizes one normalization pass.
type Stats struct {
	Total            int
	Kept             int
	DroppedNoVersion int
}

// Result holds the retained rows in source order.
type Result struct {
	Rows  []models.Row
	Stats Stats
}

// Processor handles decoding and filtering of raw records.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	logger      *logger.Logger
}

// NewProcessor creates a new processor for the given column names.
func NewProcessor(fields models.FieldNames, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Discard()
	}

	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(fields),
		logger:      log,
	}
}

// Process transforms raw records into rows, preserving source order and
// dropping rows without a version.
func (p *Processor) Process(records []models.RawRecord) (*Result, error) {
	res := &Result{
		Rows:  make([]models.Row, 0, len(records)),
		Stats: Stats{Total: len(records)},
	}

	for i, rec := range records {
		row, err := p.transformer.Transform(rec)
		if err != nil {
			return nil, fmt.Errorf("transformation failed at index %d: %w", i, err)
		}

		if err := p.validator.Validate(row); err != nil {
			if errors.Is(err, ErrMissingVersion) {
				res.Stats.DroppedNoVersion++
				p.logger.Debug("dropping row without version", "record", rec.RecordID, "index", i)

				continue
			}

			return nil, fmt.Errorf("validation failed at index %d: %w", i, err)
		}

		res.Rows = append(res.Rows, row)
	}

	res.Stats.Kept = len(res.Rows)

	return res, nil
}

// Normalize is a convenience wrapper returning only the rows.
func Normalize(records []models.RawRecord, fields models.FieldNames) ([]models.Row, error) {
	res, err := NewProcessor(fields, nil).Process(records)
	if err != nil {
		return nil, err
	}

	return res.Rows, nil
}
