package release

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrDataQuality is the error kind for row values that cannot be ordered.
var ErrDataQuality = errors.New("data quality error")

// DataQualityError reports a version string with a non-numeric segment.
type DataQualityError struct {
	Version string
	Segment string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("version %q: segment %q is not a non-negative integer", e.Version, e.Segment)
}

func (e *DataQualityError) Unwrap() error {
	return ErrDataQuality
}

// Version is the numeric sort key of a version string such as "v1.10.0".
type Version struct {
	Raw      string
	Segments []int
	Valid    bool
}

// ParseVersion strips leading "v" characters, splits on "." and parses
// every segment as a non-negative integer.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimLeft(strings.TrimSpace(s), "v"), ".")
	segments := make([]int, 0, len(parts))

	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return Version{Raw: s}, &DataQualityError{Version: s, Segment: part}
		}

		segments = append(segments, n)
	}

	return Version{Raw: s, Segments: segments, Valid: true}, nil
}

// Compare orders versions numerically, segment by segment. A version that is
// a prefix of another sorts first. Invalid versions sort after valid ones and
// among themselves by raw string.
func (v Version) Compare(other Version) int {
	switch {
	case v.Valid && other.Valid:
		return slices.Compare(v.Segments, other.Segments)
	case v.Valid:
		return -1
	case other.Valid:
		return 1
	default:
		return strings.Compare(v.Raw, other.Raw)
	}
}
