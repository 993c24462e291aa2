// Package render — JSON renderer.
// Describes every record of a document with its Markdown, plain text and
// image links, so a preview can be inspected without parsing HTML.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// Link is a Markdown link or image reference.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// RecordPreview is the JSON form of one record.
type RecordPreview struct {
	Position     int    `json:"position"`
	Title        string `json:"title"`
	URLName      string `json:"url_name"`
	Size         int    `json:"size"`
	ExceedsLimit bool   `json:"exceeds_limit"`
	Markdown     string `json:"markdown"`
	Text         string `json:"text"`
	Links        []Link `json:"links"`
	Tables       int    `json:"tables"`
}

// DocumentPreview is the JSON form of one document.
type DocumentPreview struct {
	Document core.Document   `json:"document"`
	Records  []RecordPreview `json:"records"`
}

// JSONRenderer produces structured JSON output.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render converts a document's records into the JSON preview.
func (r *JSONRenderer) Render(group core.DocumentRecords) ([]byte, error) {
	preview := DocumentPreview{
		Document: group.Document,
		Records:  make([]RecordPreview, 0, len(group.Records)),
	}
	for _, rec := range group.Records {
		md, err := ToMarkdown(rec)
		if err != nil {
			return nil, err
		}
		preview.Records = append(preview.Records, RecordPreview{
			Position:     rec.Position,
			Title:        rec.Title,
			URLName:      rec.URLName,
			Size:         rec.Size,
			ExceedsLimit: rec.ExceedsLimit,
			Markdown:     md,
			Text:         stripMarkdown(md),
			Links:        extractLinks(md),
			Tables:       countTables(md),
		})
	}

	data, err := json.MarshalIndent(preview, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

// --- Markdown parsing helpers ---

var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// linkRegex matches Markdown links [text](url) and images ![alt](src).
var linkRegex = regexp.MustCompile(`!?\[([^\]]*)\]\(([^)\s]+)\)`)

func extractLinks(md string) []Link {
	matches := linkRegex.FindAllStringSubmatch(md, -1)
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, Link{Text: m[1], Href: m[2]})
	}
	return links
}

// countTables counts Markdown tables by looking for separator rows (|---|).
var tableRowRegex = regexp.MustCompile(`(?m)^\|[-:| ]+\|$`)

func countTables(md string) int {
	return len(tableRowRegex.FindAllString(md, -1))
}

// stripMarkdown removes common Markdown formatting to produce plain text.
func stripMarkdown(md string) string {
	text := md
	text = headingRegex.ReplaceAllString(text, "$2")
	text = regexp.MustCompile(`\*{1,3}([^*]+)\*{1,3}`).ReplaceAllString(text, "$1")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = regexp.MustCompile("`([^`]+)`").ReplaceAllString(text, "$1")
	text = regexp.MustCompile(`\n{3,}`).ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
