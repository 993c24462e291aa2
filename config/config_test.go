package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "sheetpipe.yaml")

	configData := `
input:
  source_dir: "sheets"
  html_dir: "html"

output:
  dir: "result"
  previews: ["markdown", "pdf"]

normalize:
  strip_elements: []

assets:
  backend: http
  endpoint: "https://kb.example.com/api/assets"
  base_url: "https://kb.example.com/file/"
  rate_limit: 2

records:
  record_type_id: "012000000000001"
  category: "Imported"
  slug_prefix: "KB"
  field_size_limit: 1000

publish:
  enabled: true
  endpoint: "https://kb.example.com/api/records"
  batch_size: 50
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "sheets", config.Input.SourceDir)
	assert.Equal(t, "html", config.Input.HTMLDir)
	assert.Equal(t, "result", config.Output.Dir)
	assert.Equal(t, []string{"markdown", "pdf"}, config.Output.Previews)
	assert.NotNil(t, config.Normalize.StripElements)
	assert.Empty(t, config.Normalize.StripElements)
	assert.Nil(t, config.Normalize.StripAttributes)
	assert.Equal(t, BackendHTTP, config.Assets.Backend)
	assert.Equal(t, 2.0, config.Assets.Rate)
	assert.Equal(t, "012000000000001", config.Records.RecordTypeID)
	assert.Equal(t, "Imported", config.Records.Category)
	assert.Equal(t, "Knowledge Material", config.Records.Classification)
	assert.Equal(t, "KB", config.Records.SlugPrefix)
	assert.Equal(t, 1000, config.Records.FieldSizeLimit)
	assert.True(t, config.Publish.Enabled)
	assert.Equal(t, 50, config.Publish.BatchSize)
	assert.Empty(t, config.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "excel_files", config.Input.SourceDir)
	assert.Equal(t, "output_html", config.Input.HTMLDir)
	assert.Equal(t, "output_result", config.Output.Dir)
	assert.Equal(t, "soffice", config.Converter.Binary)
	assert.Equal(t, BackendNone, config.Assets.Backend)
	assert.Equal(t, "test", config.Records.ID)
	assert.Equal(t, "012N00000036GnwIAE", config.Records.RecordTypeID)
	assert.Equal(t, "Auto Import", config.Records.Category)
	assert.Equal(t, "_(test-html-import)", config.Records.TitleSuffix)
	assert.Equal(t, "URL", config.Records.SlugPrefix)
	assert.Equal(t, core.DefaultFieldSizeLimit, config.Records.FieldSizeLimit)
	assert.Empty(t, config.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SHEETPIPE_ASSET_TOKEN", "asset-secret")
	t.Setenv("SHEETPIPE_API_TOKEN", "api-secret")
	t.Setenv("SHEETPIPE_ASSET_BASE_URL", "https://cdn.example.com/")

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assets:\n  token: from-file\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "asset-secret", config.Assets.Token)
	assert.Equal(t, "api-secret", config.Publish.Token)
	assert.Equal(t, "https://cdn.example.com/", config.Assets.BaseURL)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("input: [unclosed"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{"valid config", func(*Config) {}, nil},
		{"unknown backend", func(c *Config) { c.Assets.Backend = "s3" }, []string{"assets.backend", "assets.base_url"}},
		{"dir backend without dir", func(c *Config) {
			c.Assets.Backend = BackendDir
			c.Assets.BaseURL = "https://x/"
		}, []string{"assets.dir"}},
		{"http backend bad endpoint", func(c *Config) {
			c.Assets.Backend = BackendHTTP
			c.Assets.BaseURL = "https://x/"
			c.Assets.Endpoint = "ftp://x"
		}, []string{"assets.endpoint"}},
		{"gcs backend without bucket", func(c *Config) {
			c.Assets.Backend = BackendGCS
		}, []string{"assets.bucket", "assets.base_url"}},
		{"unknown preview", func(c *Config) { c.Output.Previews = []string{"docx"} }, []string{"output.previews"}},
		{"bad extension", func(c *Config) { c.Converter.Extensions = []string{"xlsx"} }, []string{"converter.extensions"}},
		{"publish without endpoint", func(c *Config) { c.Publish.Enabled = true }, []string{"publish.endpoint"}},
		{"negative limits", func(c *Config) {
			c.Records.FieldSizeLimit = -1
			c.Publish.BatchSize = -1
			c.Assets.Rate = -1
			c.Publish.Rate = -1
		}, []string{"records.field_size_limit", "assets.rate_limit", "publish.batch_size", "publish.rate_limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			var fields []string
			for _, e := range c.Validate() {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.fields, fields)
		})
	}
}
