// Package config loads SheetPipe settings from a YAML file, environment
// variables and built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/sheetpipe/core"
	"github.com/gaurav-prasanna/sheetpipe/core/assemble"
)

// Asset backends.
const (
	BackendNone = "none"
	BackendDir  = "dir"
	BackendHTTP = "http"
	BackendGCS  = "gcs"
)

type Input struct {
	SourceDir string `yaml:"source_dir"`
	HTMLDir   string `yaml:"html_dir"`
}

type Converter struct {
	Binary     string   `yaml:"binary"`
	Extensions []string `yaml:"extensions"`
}

type Output struct {
	Dir      string   `yaml:"dir"`
	Previews []string `yaml:"previews"`
}

type Normalize struct {
	StripAttributes []string `yaml:"strip_attributes"`
	StripElements   []string `yaml:"strip_elements"`
}

type Assets struct {
	Backend string `yaml:"backend"`
	// BaseURL prefixes remote asset identifiers in rewritten img src.
	BaseURL  string  `yaml:"base_url"`
	Dir      string  `yaml:"dir"`
	Endpoint string  `yaml:"endpoint"`
	Token    string  `yaml:"token"`
	Bucket   string  `yaml:"bucket"`
	Prefix   string  `yaml:"prefix"`
	Rate     float64 `yaml:"rate_limit"`
}

type Records struct {
	assemble.Fields `yaml:",inline"`
	SlugPrefix      string `yaml:"slug_prefix"`
	FieldSizeLimit  int    `yaml:"field_size_limit"`
}

type Publish struct {
	Enabled   bool    `yaml:"enabled"`
	Endpoint  string  `yaml:"endpoint"`
	Token     string  `yaml:"token"`
	BatchSize int     `yaml:"batch_size"`
	Rate      float64 `yaml:"rate_limit"`
}

type Config struct {
	Input     Input     `yaml:"input"`
	Converter Converter `yaml:"converter"`
	Output    Output    `yaml:"output"`
	Normalize Normalize `yaml:"normalize"`
	Assets    Assets    `yaml:"assets"`
	Records   Records   `yaml:"records"`
	Publish   Publish   `yaml:"publish"`
}

// DefaultLocations are searched in order when no path is given.
func DefaultLocations() []string {
	return []string{
		"sheetpipe.yaml",
		"sheetpipe.yml",
		filepath.Join(os.Getenv("HOME"), ".config/sheetpipe/config.yaml"),
	}
}

// LoadConfig reads path, or the first default location that exists, and
// fills in environment overrides and defaults. Without any file the
// defaults are returned.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		for _, loc := range DefaultLocations() {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Input.SourceDir == "" {
		config.Input.SourceDir = "excel_files"
	}
	if config.Input.HTMLDir == "" {
		config.Input.HTMLDir = "output_html"
	}

	if config.Converter.Binary == "" {
		config.Converter.Binary = "soffice"
	}

	if config.Output.Dir == "" {
		config.Output.Dir = "output_result"
	}

	if config.Assets.Backend == "" {
		config.Assets.Backend = BackendNone
	}
	if config.Assets.Rate == 0 {
		config.Assets.Rate = 5
	}

	r := &config.Records
	if r.ID == "" {
		r.ID = assemble.DefaultID
	}
	if r.RecordTypeID == "" {
		r.RecordTypeID = assemble.DefaultRecordTypeID
	}
	if r.Category == "" {
		r.Category = assemble.DefaultCategory
	}
	if r.Classification == "" {
		r.Classification = assemble.DefaultClassification
	}
	if r.TitleSuffix == "" {
		r.TitleSuffix = assemble.DefaultTitleSuffix
	}
	if r.SlugPrefix == "" {
		r.SlugPrefix = assemble.DefaultSlugPrefix
	}
	if r.FieldSizeLimit == 0 {
		r.FieldSizeLimit = core.DefaultFieldSizeLimit
	}

	if config.Publish.BatchSize == 0 {
		config.Publish.BatchSize = 200
	}
	if config.Publish.Rate == 0 {
		config.Publish.Rate = 1
	}
}

func mergeWithEnv(config *Config) {
	if token := os.Getenv("SHEETPIPE_ASSET_TOKEN"); token != "" {
		config.Assets.Token = token
	}
	if baseURL := os.Getenv("SHEETPIPE_ASSET_BASE_URL"); baseURL != "" {
		config.Assets.BaseURL = baseURL
	}
	if token := os.Getenv("SHEETPIPE_API_TOKEN"); token != "" {
		config.Publish.Token = token
	}
}
