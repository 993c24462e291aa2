package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gaurav-prasanna/sheetpipe/core/render"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Input.HTMLDir == "" {
		errors = append(errors, ValidationError{
			Field:   "input.html_dir",
			Message: "html directory is required",
		})
	}

	if c.Output.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "output.dir",
			Message: "output directory is required",
		})
	}

	for _, p := range c.Output.Previews {
		if _, err := render.ByName(p); err != nil {
			errors = append(errors, ValidationError{
				Field:   "output.previews",
				Message: err.Error(),
			})
		}
	}

	for _, ext := range c.Converter.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errors = append(errors, ValidationError{
				Field:   "converter.extensions",
				Message: fmt.Sprintf("invalid extension format: %s", ext),
			})
		}
	}

	if c.Records.FieldSizeLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "records.field_size_limit",
			Message: "field_size_limit must be positive",
		})
	}

	// Validate asset backend
	switch c.Assets.Backend {
	case BackendNone:
	case BackendDir:
		if c.Assets.Dir == "" {
			errors = append(errors, ValidationError{
				Field:   "assets.dir",
				Message: "dir is required for the dir backend",
			})
		}
	case BackendHTTP:
		if !isHTTPURL(c.Assets.Endpoint) {
			errors = append(errors, ValidationError{
				Field:   "assets.endpoint",
				Message: "a valid http(s) endpoint is required for the http backend",
			})
		}
	case BackendGCS:
		if c.Assets.Bucket == "" {
			errors = append(errors, ValidationError{
				Field:   "assets.bucket",
				Message: "bucket is required for the gcs backend",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "assets.backend",
			Message: fmt.Sprintf("unknown backend %q (want none, dir, http or gcs)", c.Assets.Backend),
		})
	}

	if c.Assets.Backend != BackendNone && c.Assets.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "assets.base_url",
			Message: "base_url is required when an asset backend is configured",
		})
	}

	if c.Assets.Rate <= 0 {
		errors = append(errors, ValidationError{
			Field:   "assets.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate publish config
	if c.Publish.Enabled && !isHTTPURL(c.Publish.Endpoint) {
		errors = append(errors, ValidationError{
			Field:   "publish.endpoint",
			Message: "a valid http(s) endpoint is required when publishing",
		})
	}

	if c.Publish.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "publish.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Publish.Rate <= 0 {
		errors = append(errors, ValidationError{
			Field:   "publish.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	return errors
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
