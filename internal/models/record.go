// Package models defines data structures shared by the fetcher, normalizer and renderer.
package models

import "encoding/json"

// RawRecord is one item returned by the bitable records search.
// Field values are kept undecoded; their shape depends on the column type.
type RawRecord struct {
	Fields   map[string]json.RawMessage `json:"fields"`
	RecordID string                     `json:"record_id"`
}

// Fragment is one piece of a rich-text cell.
type Fragment struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// NestedValue wraps lookup and formula cells: {"type": ..., "value": [...]}.
type NestedValue struct {
	Value []json.RawMessage `json:"value"`
	Type  json.RawMessage   `json:"type,omitempty"`
}

// FieldNames maps each column of the release table to its name in the source sheet.
type FieldNames struct {
	Module           string `koanf:"module" yaml:"module"`
	Version          string `koanf:"version" yaml:"version"`
	ReleaseDate      string `koanf:"release_date" yaml:"release_date"`
	UpdateType       string `koanf:"update_type" yaml:"update_type"`
	PrimaryFeature   string `koanf:"primary_feature" yaml:"primary_feature"`
	SecondaryFeature string `koanf:"secondary_feature" yaml:"secondary_feature"`
	BaselineParams   string `koanf:"baseline_params" yaml:"baseline_params"`
}

// DefaultFieldNames returns the column names used by the d.run release sheet.
func DefaultFieldNames() FieldNames {
	return FieldNames{
		Module:           "功能模块",
		Version:          "版本",
		ReleaseDate:      "发版时间",
		UpdateType:       "更新类型",
		PrimaryFeature:   "一级功能",
		SecondaryFeature: "二级功能",
		BaselineParams:   "基线参数",
	}
}

// WithDefaults fills empty names from DefaultFieldNames.
func (f FieldNames) WithDefaults() FieldNames {
	d := DefaultFieldNames()

	if f.Module == "" {
		f.Module = d.Module
	}

	if f.Version == "" {
		f.Version = d.Version
	}

	if f.ReleaseDate == "" {
		f.ReleaseDate = d.ReleaseDate
	}

	if f.UpdateType == "" {
		f.UpdateType = d.UpdateType
	}

	if f.PrimaryFeature == "" {
		f.PrimaryFeature = d.PrimaryFeature
	}

	if f.SecondaryFeature == "" {
		f.SecondaryFeature = d.SecondaryFeature
	}

	if f.BaselineParams == "" {
		f.BaselineParams = d.BaselineParams
	}

	return f
}
