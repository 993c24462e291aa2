package render

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// Formats lists the preview format names accepted by ByName.
var Formats = []string{"markdown", "json", "pdf"}

// ByName returns the renderer for a preview format.
func ByName(name string) (core.Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "markdown", "md":
		return NewMarkdownRenderer(), nil
	case "json":
		return NewJSONRenderer(), nil
	case "pdf":
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown preview format %q (want one of %s)", name, strings.Join(Formats, ", "))
	}
}
