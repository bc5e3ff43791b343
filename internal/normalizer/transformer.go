package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"relnotes/internal/models"
)

// dateLayout is the ISO calendar date used for release dates.
const dateLayout = "2006-01-02"

// ErrMalformedField is returned when a cell payload has an unexpected shape.
var ErrMalformedField = errors.New("malformed field")

// Transformer decodes raw bitable cells into a Row.
type Transformer struct {
	fields models.FieldNames
}

// NewTransformer creates a transformer for the given column names.
func NewTransformer(fields models.FieldNames) *Transformer {
	return &Transformer{fields: fields.WithDefaults()}
}

// Transform converts one raw record into a row. It never filters.
func (t *Transformer) Transform(rec models.RawRecord) (models.Row, error) {
	var (
		row models.Row
		err error
	)

	fieldErr := func(name string, err error) error {
		return fmt.Errorf("%w: record %s field %q: %w", ErrMalformedField, rec.RecordID, name, err)
	}

	if row.Module, err = decodeText(rec.Fields[t.fields.Module]); err != nil {
		return row, fieldErr(t.fields.Module, err)
	}

	if row.Version, err = decodeNestedText(rec.Fields[t.fields.Version]); err != nil {
		return row, fieldErr(t.fields.Version, err)
	}

	if row.ReleaseDate, err = decodeDate(rec.Fields[t.fields.ReleaseDate]); err != nil {
		return row, fieldErr(t.fields.ReleaseDate, err)
	}

	if row.UpdateType, err = decodeText(rec.Fields[t.fields.UpdateType]); err != nil {
		return row, fieldErr(t.fields.UpdateType, err)
	}

	if row.PrimaryFeature, err = decodeText(rec.Fields[t.fields.PrimaryFeature]); err != nil {
		return row, fieldErr(t.fields.PrimaryFeature, err)
	}

	if row.SecondaryFeature, err = decodeText(rec.Fields[t.fields.SecondaryFeature]); err != nil {
		return row, fieldErr(t.fields.SecondaryFeature, err)
	}

	if row.BaselineParams, err = decodeText(rec.Fields[t.fields.BaselineParams]); err != nil {
		return row, fieldErr(t.fields.BaselineParams, err)
	}

	return row, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeText reads a plain string, a number, or a rich-text fragment list.
// Fragment texts are joined with "," in fragment order.
func decodeText(raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return "", nil
	}

	switch bytes.TrimSpace(raw)[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}

		return s, nil
	case '[':
		var frags []models.Fragment
		if err := json.Unmarshal(raw, &frags); err != nil {
			return "", err
		}

		texts := make([]string, 0, len(frags))
		for _, f := range frags {
			texts = append(texts, f.Text)
		}

		return strings.Join(texts, ","), nil
	case '{':
		return decodeNestedText(raw)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}

		return n.String(), nil
	}
}

// decodeNestedText reads {"value": [first, ...]} and returns the text of first.
// A bare string or fragment list is accepted as well.
func decodeNestedText(raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return "", nil
	}

	if bytes.TrimSpace(raw)[0] != '{' {
		return decodeText(raw)
	}

	var nested models.NestedValue
	if err := json.Unmarshal(raw, &nested); err != nil {
		return "", err
	}

	if len(nested.Value) == 0 || isAbsent(nested.Value[0]) {
		return "", nil
	}

	first := nested.Value[0]
	if bytes.TrimSpace(first)[0] == '{' {
		var frag models.Fragment
		if err := json.Unmarshal(first, &frag); err != nil {
			return "", err
		}

		return frag.Text, nil
	}

	return decodeText(first)
}

// decodeDate reads a millisecond epoch timestamp, either bare or as the first
// element of {"value": [...]}, and formats it as a UTC calendar date.
// Absent values yield an empty date.
func decodeDate(raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return "", nil
	}

	if bytes.TrimSpace(raw)[0] == '{' {
		var nested models.NestedValue
		if err := json.Unmarshal(raw, &nested); err != nil {
			return "", err
		}

		if len(nested.Value) == 0 {
			return "", nil
		}

		raw = nested.Value[0]
		if isAbsent(raw) {
			return "", nil
		}
	}

	if bytes.Equal(bytes.TrimSpace(raw), []byte(`""`)) {
		return "", nil
	}

	ms, err := parseMillis(raw)
	if err != nil {
		return "", err
	}

	return time.UnixMilli(ms).UTC().Format(dateLayout), nil
}

func parseMillis(raw json.RawMessage) (int64, error) {
	var n json.Number

	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, err
		}

		n = json.Number(strings.TrimSpace(s))
	} else if err := json.Unmarshal(trimmed, &n); err != nil {
		return 0, err
	}

	if ms, err := n.Int64(); err == nil {
		return ms, nil
	}

	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q is not a number", n.String())
	}

	return int64(f), nil
}
