// Package render provides preview renderers for a document's records.
// Record content is converted to Markdown first, which the other
// renderers build on.
package render

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// ToMarkdown converts the HTML content of a record into Markdown.
func ToMarkdown(rec core.OutputRecord) (string, error) {
	md, err := htmltomarkdown.ConvertString(rec.Answer)
	if err != nil {
		return "", fmt.Errorf("converting %q to markdown: %w", rec.Title, err)
	}
	return strings.TrimSpace(md), nil
}

// MarkdownRenderer writes one section per record.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the Markdown preview of a document.
func (r *MarkdownRenderer) Render(group core.DocumentRecords) ([]byte, error) {
	var b strings.Builder
	for i, rec := range group.Records {
		md, err := ToMarkdown(rec)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "# %s\n\n", rec.Title)
		if rec.ExceedsLimit {
			fmt.Fprintf(&b, "> Exceeds the size limit (%d characters), not part of the aggregate import.\n\n", rec.Size)
		}
		b.WriteString(md)
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}
