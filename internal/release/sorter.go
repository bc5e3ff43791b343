package release

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"relnotes/internal/models"
)

// DefaultUndatedLabel is the section heading used for rows without a release date.
// Release pages published before this tool used "None"; set
// release.undated_label to keep that heading.
const DefaultUndatedLabel = "TBD"

// Options controls ordering and grouping.
type Options struct {
	// ModuleOrder lists modules by display priority. Empty selects DefaultModuleOrder.
	ModuleOrder []string
	// LenientVersions orders malformed versions last instead of failing.
	LenientVersions bool
	// UndatedLabel names the section holding rows without a release date.
	UndatedLabel string
}

func (o Options) undatedLabel() string {
	if o.UndatedLabel == "" {
		return DefaultUndatedLabel
	}

	return o.UndatedLabel
}

type sortItem struct {
	row        models.Row
	version    Version
	moduleRank int
	typeRank   int
}

// Sort returns a copy of rows in display order: release date descending with
// undated rows last, then module priority, version, update type priority and
// primary feature. Empty update types become NoUpdateType. Rows equal on every
// key keep their input order.
func Sort(rows []models.Row, opts Options) ([]models.Row, error) {
	items, err := prepare(rows, opts)
	if err != nil {
		return nil, err
	}

	out := make([]models.Row, len(items))
	for i, it := range items {
		out[i] = it.row
	}

	return out, nil
}

func prepare(rows []models.Row, opts Options) ([]sortItem, error) {
	ranker := NewRanker(opts.ModuleOrder)
	items := make([]sortItem, 0, len(rows))

	for i, row := range rows {
		row.UpdateType = NormalizeUpdateType(row.UpdateType)

		v, err := ParseVersion(row.Version)
		if err != nil && !opts.LenientVersions {
			return nil, fmt.Errorf("row %d (%s %s): %w", i, row.Module, row.PrimaryFeature, err)
		}

		items = append(items, sortItem{
			row:        row,
			version:    v,
			moduleRank: ranker.ModuleRank(row.Module),
			typeRank:   ranker.UpdateTypeRank(row.UpdateType),
		})
	}

	slices.SortStableFunc(items, compareItems)

	return items, nil
}

func compareItems(a, b sortItem) int {
	if c := compareDatesDesc(a.row.ReleaseDate, b.row.ReleaseDate); c != 0 {
		return c
	}

	if c := cmp.Compare(a.moduleRank, b.moduleRank); c != 0 {
		return c
	}

	if c := a.version.Compare(b.version); c != 0 {
		return c
	}

	if c := cmp.Compare(a.typeRank, b.typeRank); c != 0 {
		return c
	}

	return strings.Compare(a.row.PrimaryFeature, b.row.PrimaryFeature)
}

// compareDatesDesc orders ISO dates newest first with empty dates last.
func compareDatesDesc(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return strings.Compare(b, a)
	}
}
