// Package release orders normalized rows and groups them into the
// date / module / version / update type tree that the renderer walks.
package release

import (
	"slices"
	"strings"

	"relnotes/internal/models"
)

// Entry is one bullet of the release notes.
type Entry struct {
	PrimaryFeature   string
	SecondaryFeature string
	BaselineParams   string
}

// TypeGroup holds the entries of one update type, ordered by primary feature.
type TypeGroup struct {
	UpdateType string
	Entries    []Entry
}

// VersionGroup holds the update types present for one module version.
type VersionGroup struct {
	Version string
	Types   []*TypeGroup

	byType map[string]*TypeGroup
}

// Type looks up an update type group.
func (g *VersionGroup) Type(updateType string) (*TypeGroup, bool) {
	tg, ok := g.byType[updateType]

	return tg, ok
}

// ModuleGroup holds the versions of one module released on one date.
type ModuleGroup struct {
	Module   string
	Versions []*VersionGroup

	byVersion map[string]*VersionGroup
}

// Version looks up a version group.
func (g *ModuleGroup) Version(version string) (*VersionGroup, bool) {
	vg, ok := g.byVersion[version]

	return vg, ok
}

// DateGroup holds everything released on one date.
type DateGroup struct {
	// Date is the ISO release date, empty for undated rows.
	Date    string
	Heading string
	Modules []*ModuleGroup

	byModule map[string]*ModuleGroup
}

// Undated reports whether the group collects rows without a release date.
func (g *DateGroup) Undated() bool {
	return g.Date == ""
}

// Module looks up a module group.
func (g *DateGroup) Module(module string) (*ModuleGroup, bool) {
	mg, ok := g.byModule[module]

	return mg, ok
}

// Tree is the grouped release data. Every level keeps an ordered slice for
// traversal next to a map for lookup.
type Tree struct {
	Dates        []*DateGroup
	UndatedLabel string

	byDate map[string]*DateGroup
}

// Date looks up a date group. The empty string selects the undated group.
func (t *Tree) Date(date string) (*DateGroup, bool) {
	dg, ok := t.byDate[date]

	return dg, ok
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	n := 0

	for _, dg := range t.Dates {
		for _, mg := range dg.Modules {
			for _, vg := range mg.Versions {
				for _, tg := range vg.Types {
					n += len(tg.Entries)
				}
			}
		}
	}

	return n
}

// NewTree returns an empty tree.
func NewTree(undatedLabel string) *Tree {
	if undatedLabel == "" {
		undatedLabel = DefaultUndatedLabel
	}

	return &Tree{
		UndatedLabel: undatedLabel,
		byDate:       make(map[string]*DateGroup),
	}
}

// Insert appends a row to the tree, creating groups on first sight.
// Groups are ordered by insertion; callers insert rows in display order.
func (t *Tree) Insert(row models.Row) {
	dg, ok := t.Date(row.ReleaseDate)
	if !ok {
		heading := row.ReleaseDate
		if !row.HasReleaseDate() {
			heading = t.UndatedLabel
		}

		dg = &DateGroup{Date: row.ReleaseDate, Heading: heading, byModule: make(map[string]*ModuleGroup)}
		t.byDate[row.ReleaseDate] = dg
		t.Dates = append(t.Dates, dg)
	}

	mg, ok := dg.Module(row.Module)
	if !ok {
		mg = &ModuleGroup{Module: row.Module, byVersion: make(map[string]*VersionGroup)}
		dg.byModule[row.Module] = mg
		dg.Modules = append(dg.Modules, mg)
	}

	vg, ok := mg.Version(row.Version)
	if !ok {
		vg = &VersionGroup{Version: row.Version, byType: make(map[string]*TypeGroup)}
		mg.byVersion[row.Version] = vg
		mg.Versions = append(mg.Versions, vg)
	}

	updateType := NormalizeUpdateType(row.UpdateType)

	tg, ok := vg.Type(updateType)
	if !ok {
		tg = &TypeGroup{UpdateType: updateType}
		vg.byType[updateType] = tg
		vg.Types = append(vg.Types, tg)
	}

	tg.Entries = append(tg.Entries, Entry{
		PrimaryFeature:   row.PrimaryFeature,
		SecondaryFeature: row.SecondaryFeature,
		BaselineParams:   row.BaselineParams,
	})
}

// SortEntries stably re-sorts every entry list by primary feature.
func (t *Tree) SortEntries() {
	for _, dg := range t.Dates {
		for _, mg := range dg.Modules {
			for _, vg := range mg.Versions {
				for _, tg := range vg.Types {
					slices.SortStableFunc(tg.Entries, func(a, b Entry) int {
						return strings.Compare(a.PrimaryFeature, b.PrimaryFeature)
					})
				}
			}
		}
	}
}

// Build sorts rows and groups them into a tree.
func Build(rows []models.Row, opts Options) (*Tree, error) {
	sorted, err := Sort(rows, opts)
	if err != nil {
		return nil, err
	}

	tree := NewTree(opts.undatedLabel())
	for _, row := range sorted {
		tree.Insert(row)
	}

	tree.SortEntries()

	return tree, nil
}
