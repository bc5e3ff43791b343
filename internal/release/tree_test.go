package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relnotes/internal/models"
)

func TestBuild_Groups(t *testing.T) {
	rows := []models.Row{
		{Module: "算力云", Version: "v1.2.0", ReleaseDate: "2024-01-10", UpdateType: "故障修复", PrimaryFeature: "调度修复"},
		{Module: "算力云", Version: "v1.2.0", ReleaseDate: "2024-01-10", UpdateType: "新功能", PrimaryFeature: "GPU调度", BaselineParams: "A100"},
		{Module: "费用中心", Version: "v0.5.0", ReleaseDate: "2024-01-10", UpdateType: "增强优化", PrimaryFeature: "账单"},
		{Module: "算力云", Version: "v1.1.0", ReleaseDate: "2024-01-01", PrimaryFeature: "说明"},
	}

	tree, err := Build(rows, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, tree.Len())

	require.Len(t, tree.Dates, 2)
	assert.Equal(t, "2024-01-10", tree.Dates[0].Date)
	assert.Equal(t, "2024-01-01", tree.Dates[1].Date)

	jan10 := tree.Dates[0]
	require.Len(t, jan10.Modules, 2)
	assert.Equal(t, "算力云", jan10.Modules[0].Module)
	assert.Equal(t, "费用中心", jan10.Modules[1].Module)

	vg, ok := jan10.Modules[0].Version("v1.2.0")
	require.True(t, ok)
	require.Len(t, vg.Types, 2)
	assert.Equal(t, UpdateTypeNewFeature, vg.Types[0].UpdateType)
	assert.Equal(t, UpdateTypeBugfix, vg.Types[1].UpdateType)
	assert.Equal(t, []Entry{{PrimaryFeature: "GPU调度", BaselineParams: "A100"}}, vg.Types[0].Entries)

	jan01, ok := tree.Date("2024-01-01")
	require.True(t, ok)

	mg, ok := jan01.Module("算力云")
	require.True(t, ok)

	v110, ok := mg.Version("v1.1.0")
	require.True(t, ok)

	tg, ok := v110.Type(NoUpdateType)
	require.True(t, ok)
	assert.Equal(t, "说明", tg.Entries[0].PrimaryFeature)
}

func TestBuild_UndatedGroup(t *testing.T) {
	rows := []models.Row{
		{Module: "算力云", Version: "v9.0.0", PrimaryFeature: "规划中"},
		{Module: "算力云", Version: "v1.0.0", ReleaseDate: "2024-01-01", PrimaryFeature: "已发布"},
	}

	tree, err := Build(rows, Options{UndatedLabel: "待定"})
	require.NoError(t, err)
	require.Len(t, tree.Dates, 2)

	last := tree.Dates[1]
	assert.True(t, last.Undated())
	assert.Equal(t, "待定", last.Heading)
	assert.False(t, tree.Dates[0].Undated())
	assert.Equal(t, "2024-01-01", tree.Dates[0].Heading)

	got, ok := tree.Date("")
	require.True(t, ok)
	assert.Same(t, last, got)
}

func TestBuild_DefaultUndatedLabel(t *testing.T) {
	tree, err := Build([]models.Row{{Version: "v1"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultUndatedLabel, tree.Dates[0].Heading)
}

func TestBuild_Empty(t *testing.T) {
	tree, err := Build(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, tree.Dates)
	assert.Zero(t, tree.Len())
}

func TestBuild_MalformedVersion(t *testing.T) {
	_, err := Build([]models.Row{{Version: "v1.x"}}, Options{})
	require.ErrorIs(t, err, ErrDataQuality)
}

func TestTree_SortEntriesIsStable(t *testing.T) {
	tree := NewTree("")
	base := models.Row{Module: "算力云", Version: "v1.0.0", ReleaseDate: "2024-01-01", UpdateType: "新功能"}

	for _, p := range []struct{ primary, marker string }{
		{"b", "1"}, {"a", "2"}, {"b", "3"}, {"a", "4"},
	} {
		r := base
		r.PrimaryFeature = p.primary
		r.SecondaryFeature = p.marker
		tree.Insert(r)
	}

	tree.SortEntries()

	entries := tree.Dates[0].Modules[0].Versions[0].Types[0].Entries
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.PrimaryFeature + e.SecondaryFeature
	}

	assert.Equal(t, []string{"a2", "a4", "b1", "b3"}, got)
}
