package models

// Row is one normalized release entry with a fixed 7-column schema.
type Row struct {
	Module           string `json:"module"`
	Version          string `json:"version"`
	ReleaseDate      string `json:"releaseDate,omitempty"` // YYYY-MM-DD, empty when the sheet has no date
	UpdateType       string `json:"updateType"`
	PrimaryFeature   string `json:"primaryFeature"`
	SecondaryFeature string `json:"secondaryFeature"`
	BaselineParams   string `json:"baselineParams"`
}

// HasReleaseDate reports whether the row carries a release date.
func (r Row) HasReleaseDate() bool {
	return r.ReleaseDate != ""
}

// Columns returns the row values in header order.
func (r Row) Columns() []string {
	return []string{
		r.Module,
		r.Version,
		r.ReleaseDate,
		r.UpdateType,
		r.PrimaryFeature,
		r.SecondaryFeature,
		r.BaselineParams,
	}
}

// HeaderRow returns the column titles used for row exports.
func HeaderRow() []string {
	return []string{
		"功能模块",
		"发布版本",
		"发版时间",
		"更新类型",
		"一级功能",
		"二级功能",
		"基线参数",
	}
}
