// Package size decides whether record content fits the destination's
// per-field limit.
package size

import (
	"unicode/utf8"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// Guard evaluates content against a character limit.
type Guard struct {
	Limit int
}

// New returns a Guard. A non-positive limit uses core.DefaultFieldSizeLimit.
func New(limit int) Guard {
	if limit <= 0 {
		limit = core.DefaultFieldSizeLimit
	}
	return Guard{Limit: limit}
}

// Evaluate returns the size of content in characters and whether it reaches
// the limit. Content exactly at the limit already exceeds it.
func (g Guard) Evaluate(content string) (int, bool) {
	n := utf8.RuneCountInString(content)
	return n, n >= g.Limit
}
