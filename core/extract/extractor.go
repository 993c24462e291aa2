// Package extract splits a normalized document into one Sheet per table.
// Tables are located through their cells (td/th with a table ancestor);
// when a document holds several tables, each one is paired with the named
// anchor carrying the original sheet name.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

var (
	cellSel   = cascadia.MustCompile("table td, table th")
	anchorSel = cascadia.MustCompile("a[name]")
)

// TableExtractor yields the sheets of a document.
type TableExtractor struct{}

// New creates a TableExtractor.
func New() *TableExtractor {
	return &TableExtractor{}
}

// Located is a top-level table paired with its record title. Table stays
// attached to the document, so later edits to the document show up when
// it is serialized.
type Located struct {
	Title string
	Table *goquery.Selection
}

// Extract returns one Sheet per top-level table in document order.
// A document without tables yields no sheets and no error. A multi-table
// document whose anchor count differs from its table count yields a
// *core.StructuralMismatchError.
func (e *TableExtractor) Extract(doc *goquery.Document, docIndex int, name string) ([]core.Sheet, error) {
	located, err := e.Locate(doc, name)
	if err != nil {
		return nil, err
	}
	return e.Serialize(located, docIndex)
}

// Locate pairs the top-level tables of doc with their titles without
// serializing them. It fails the same way Extract does.
func (e *TableExtractor) Locate(doc *goquery.Document, name string) ([]Located, error) {
	body := doc.Find("body")
	if body.Length() == 0 {
		return nil, fmt.Errorf("%w: no body element", core.ErrParse)
	}

	tables := Tables(body)
	if len(tables) == 0 {
		return nil, nil
	}

	var titles []string
	if len(tables) == 1 {
		titles = []string{name}
	} else {
		names := SheetNames(body)
		if len(names) != len(tables) {
			return nil, &core.StructuralMismatchError{
				Document: name,
				Tables:   len(tables),
				Anchors:  len(names),
			}
		}
		for _, sheet := range names {
			titles = append(titles, name+"_"+sheet)
		}
	}

	located := make([]Located, len(tables))
	for i, table := range tables {
		located[i] = Located{Title: titles[i], Table: table}
	}
	return located, nil
}

// Serialize renders located tables as sheets of document docIndex.
func (e *TableExtractor) Serialize(located []Located, docIndex int) ([]core.Sheet, error) {
	sheets := make([]core.Sheet, 0, len(located))
	for i, l := range located {
		markup, err := goquery.OuterHtml(l.Table)
		if err != nil {
			return nil, fmt.Errorf("serializing table %d: %w", i, err)
		}
		sheets = append(sheets, core.Sheet{
			Title:         l.Title,
			DocumentIndex: docIndex,
			Markup:        markup,
		})
	}
	return sheets, nil
}

// Tables returns the outermost tables that own at least one cell, in
// document order.
func Tables(root *goquery.Selection) []*goquery.Selection {
	seen := make(map[*html.Node]bool)
	var tables []*goquery.Selection

	root.FindMatcher(cellSel).Each(func(_ int, cell *goquery.Selection) {
		table := cell.Closest("table")
		if outer := table.ParentsFiltered("table"); outer.Length() > 0 {
			table = outer.Last()
		}
		node := table.Get(0)
		if node == nil || seen[node] {
			return
		}
		seen[node] = true
		tables = append(tables, table)
	})
	return tables
}

// SheetNames returns the labels of the named anchors in document order.
// The label is the emphasized part of the anchor when present (the
// converter writes "Sheet 1: <em>Name</em>"), otherwise its whole text.
// Anchors without a label are ignored.
func SheetNames(root *goquery.Selection) []string {
	var names []string
	root.FindMatcher(anchorSel).Each(func(_ int, a *goquery.Selection) {
		label := a.Find("em").First().Text()
		if strings.TrimSpace(label) == "" {
			label = a.Text()
		}
		label = strings.Join(strings.Fields(label), " ")
		if label != "" {
			names = append(names, label)
		}
	})
	return names
}
