// Package config provides configuration management for the release-notes generator.
//
// Values are layered: built-in defaults, then the YAML config file, then
// RELNOTES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"relnotes/internal/models"
)

// EnvPrefix is the prefix of environment variables that override config values.
const EnvPrefix = "RELNOTES_"

// DefaultOutputPath is where the rendered release notes are written.
const DefaultOutputPath = "rel-notes.md"

// Configuration validation errors.
var (
	ErrMissingAppID      = errors.New("APP_ID is required")
	ErrMissingAppSecret  = errors.New("APP_SECRET is required")
	ErrMissingURL        = errors.New("URL is required")
	ErrMissingNodeToken  = errors.New("URL has no wiki node token (expected .../wiki/<token>)")
	ErrMissingTableID    = errors.New("URL has no table= query parameter")
	ErrMissingViewID     = errors.New("URL has no view= query parameter")
	ErrInvalidField      = errors.New("invalid configuration value")
	ErrConfigFileMissing = errors.New("config file not found")
)

var (
	nodeTokenPattern = regexp.MustCompile(`/wiki/([A-Za-z0-9]+)`)
	tablePattern     = regexp.MustCompile(`[?&]table=([A-Za-z0-9]+)`)
	viewPattern      = regexp.MustCompile(`[?&]view=([A-Za-z0-9]+)`)

	structValidator = validator.New(validator.WithRequiredStructEnabled())
)

// Config represents the complete generator configuration.
type Config struct {
	AppID      string            `koanf:"APP_ID" yaml:"APP_ID"`
	AppSecret  string            `koanf:"APP_SECRET" yaml:"APP_SECRET"`
	URL        string            `koanf:"URL" yaml:"URL" validate:"omitempty,url"`
	BaseURL    string            `koanf:"base_url" yaml:"base_url" validate:"required,url"`
	Output     OutputConfig      `koanf:"output" yaml:"output"`
	Logging    LoggingConfig     `koanf:"logging" yaml:"logging"`
	Release    ReleaseConfig     `koanf:"release" yaml:"release"`
	Fields     models.FieldNames `koanf:"fields" yaml:"fields"`
	HTTP       HTTPConfig        `koanf:"http" yaml:"http"`
	Search     SearchConfig      `koanf:"search" yaml:"search"`
	Validation ValidationConfig  `koanf:"validation" yaml:"validation"`
}

// HTTPConfig controls the API client.
type HTTPConfig struct {
	TimeoutSec int `koanf:"timeout_sec" yaml:"timeout_sec" validate:"min=1"`
}

// SearchConfig controls the records search request.
type SearchConfig struct {
	PageSize int  `koanf:"page_size" yaml:"page_size" validate:"min=0,max=500"`
	AllPages bool `koanf:"all_pages" yaml:"all_pages"`
}

// OutputConfig defines where results are written.
type OutputConfig struct {
	Path    string `koanf:"path" yaml:"path" validate:"required"`
	CSVPath string `koanf:"csv_path" yaml:"csv_path"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=text json"`
}

// ReleaseConfig controls grouping and ordering of release entries.
type ReleaseConfig struct {
	// UndatedLabel heads the section of rows without a release date. The
	// default is "TBD"; use "None" to match pages published before relnotes.
	UndatedLabel    string   `koanf:"undated_label" yaml:"undated_label" validate:"required"`
	ModuleOrder     []string `koanf:"module_order" yaml:"module_order" validate:"dive,required"`
	LenientVersions bool     `koanf:"lenient_versions" yaml:"lenient_versions"`
}

// ValidationConfig toggles the rendered document self-check. It is off by
// default; when enabled, a document with structural errors aborts the run.
type ValidationConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

// Source identifies the table view the records are read from.
type Source struct {
	NodeToken string
	TableID   string
	ViewID    string
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// Path is the YAML config file. Empty skips the file layer.
	Path string
	// Optional tolerates a missing file at Path.
	Optional bool
}

// LoadConfig loads configuration from a YAML file that must exist.
func LoadConfig(path string) (*Config, error) {
	return Load(LoadOptions{Path: path})
}

// Load loads configuration from defaults, the config file and the environment.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if opts.Path != "" {
		if err := loadFile(k, opts.Path, opts.Optional); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Fields = cfg.Fields.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, optional bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if optional {
				return nil
			}

			return fmt.Errorf("%w: %s", ErrConfigFileMissing, path)
		}

		return fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := ValidateYAMLSyntax(path); err != nil {
		return err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}

	return nil
}

// ValidateYAMLSyntax reports YAML syntax errors with the parser's line information.
func ValidateYAMLSyntax(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var node yamlv3.Node
	if err := yamlv3.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to parse YAML %s: %w", path, err)
	}

	return nil
}

// envTransform maps RELNOTES_APP_SECRET to APP_SECRET and
// RELNOTES_OUTPUT__CSV_PATH to output.csv_path.
func envTransform(s string) string {
	key := strings.TrimPrefix(s, EnvPrefix)

	switch key {
	case "APP_ID", "APP_SECRET", "URL":
		return key
	}

	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.AppID == "" {
		return ErrMissingAppID
	}

	if c.AppSecret == "" {
		return ErrMissingAppSecret
	}

	if c.URL == "" {
		return ErrMissingURL
	}

	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]

			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidField, fe.Namespace(), fe.Tag(), fe.Value())
		}

		return fmt.Errorf("%w: %w", ErrInvalidField, err)
	}

	if _, err := ParseSourceURL(c.URL); err != nil {
		return err
	}

	return nil
}

// Source extracts the node token, table and view from the configured URL.
func (c *Config) Source() (Source, error) {
	return ParseSourceURL(c.URL)
}

// ParseSourceURL extracts the wiki node token and the table and view ids from a
// shared table link such as https://x.feishu.cn/wiki/<token>?table=<id>&view=<id>.
func ParseSourceURL(raw string) (Source, error) {
	var src Source

	m := nodeTokenPattern.FindStringSubmatch(raw)
	if m == nil {
		return src, ErrMissingNodeToken
	}

	src.NodeToken = m[1]

	m = tablePattern.FindStringSubmatch(raw)
	if m == nil {
		return src, ErrMissingTableID
	}

	src.TableID = m[1]

	m = viewPattern.FindStringSubmatch(raw)
	if m == nil {
		return src, ErrMissingViewID
	}

	src.ViewID = m[1]

	return src, nil
}

// Timeout returns the HTTP client timeout.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSec) * time.Second
}

// String returns a string representation of the config with the secret redacted.
func (c *Config) String() string {
	secret := ""
	if c.AppSecret != "" {
		secret = "***"
	}

	return fmt.Sprintf(
		"Config{AppID: %s, AppSecret: %s, URL: %s, Output: %s}",
		c.AppID,
		secret,
		c.URL,
		c.Output.Path,
	)
}
