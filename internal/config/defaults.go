package config

import (
	"relnotes/internal/models"
	"relnotes/internal/release"
)

// DefaultBaseURL is the Feishu open platform API root.
const DefaultBaseURL = "https://open.feishu.cn/open-apis"

// Defaults returns the default value of every config key.
func Defaults() map[string]any {
	f := models.DefaultFieldNames()

	return map[string]any{
		"base_url":                 DefaultBaseURL,
		"http.timeout_sec":         30,
		"search.page_size":         0,
		"search.all_pages":         false,
		"output.path":              DefaultOutputPath,
		"output.csv_path":          "",
		"logging.level":            "info",
		"logging.format":           "text",
		"release.undated_label":    "TBD",
		"release.module_order":     release.DefaultModuleOrder(),
		"release.lenient_versions": false,
		"validation.enabled":       false,
		"fields.module":            f.Module,
		"fields.version":           f.Version,
		"fields.release_date":      f.ReleaseDate,
		"fields.update_type":       f.UpdateType,
		"fields.primary_feature":   f.PrimaryFeature,
		"fields.secondary_feature": f.SecondaryFeature,
		"fields.baseline_params":   f.BaselineParams,
	}
}

// Sample returns a config populated with defaults and placeholder credentials,
// suitable for writing a starter config file.
func Sample() *Config {
	return &Config{
		AppID:     "cli_xxxxxxxxxxxxxxxx",
		AppSecret: "replace-me",
		URL:       "https://example.feishu.cn/wiki/NodeToken?table=tblTableId&view=vewViewId",
		BaseURL:   DefaultBaseURL,
		HTTP:      HTTPConfig{TimeoutSec: 30},
		Output:    OutputConfig{Path: DefaultOutputPath},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Release: ReleaseConfig{
			UndatedLabel: "TBD",
			ModuleOrder:  release.DefaultModuleOrder(),
		},
		Validation: ValidationConfig{},
		Fields:     models.DefaultFieldNames(),
	}
}
