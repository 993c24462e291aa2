// Package minify shrinks sheet markup before its size is evaluated.
package minify

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

const mediaType = "text/html"

// Minifier removes insignificant whitespace from sheet HTML. End tags,
// attribute quotes and default attribute values are kept so the result
// still renders the same in strict importers.
type Minifier struct {
	m *minify.M
}

// New creates a Minifier.
func New() *Minifier {
	m := minify.New()
	m.Add(mediaType, &html.Minifier{
		KeepEndTags:         true,
		KeepDocumentTags:    true,
		KeepQuotes:          true,
		KeepDefaultAttrVals: true,
	})
	return &Minifier{m: m}
}

// String minifies one HTML fragment.
func (mn *Minifier) String(markup string) (string, error) {
	out, err := mn.m.String(mediaType, markup)
	if err != nil {
		return "", fmt.Errorf("minifying html: %w", err)
	}
	return out, nil
}
