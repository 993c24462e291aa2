// Package normalize rewrites the legacy presentational markup produced by
// office converters into inline CSS:
//  1. bgcolor / align / valign attributes become style declarations,
//     with align mapped per element (cell text, table position, image float)
//  2. <font size color face> becomes an inline-styled <span>
//  3. converter-only attributes and noise elements are removed
package normalize

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// DefaultStripAttributes are attributes the converter uses only to carry
// redundant structured values (raw cell values, number formats, formulas).
var DefaultStripAttributes = []string{
	"data-sheets-value",
	"data-sheets-formula",
	"data-sheets-note",
	"sdval",
	"sdnum",
}

// DefaultStripElements are removed outright before extraction.
var DefaultStripElements = []string{"br"}

var (
	bgcolorSel = cascadia.MustCompile("[bgcolor]")
	alignSel   = cascadia.MustCompile("[align]")
	valignSel  = cascadia.MustCompile("[valign]")
	fontSel    = cascadia.MustCompile("font")
)

// fontSizes maps the HTML font size attribute to CSS absolute-size keywords.
var fontSizes = map[string]string{
	"1": "x-small",
	"2": "small",
	"3": "medium",
	"4": "large",
	"5": "x-large",
	"6": "xx-large",
	"7": "-webkit-xxx-large",
}

// Config configures a Normalizer.
type Config struct {
	StripAttributes []string
	StripElements   []string
	Logger          *slog.Logger
}

func (c *Config) defaults() {
	if c.StripAttributes == nil {
		c.StripAttributes = DefaultStripAttributes
	}
	if c.StripElements == nil {
		c.StripElements = DefaultStripElements
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats counts the rewrites applied to one document.
type Stats struct {
	Backgrounds int
	Alignments  int
	Fonts       int
	Attributes  int
	Elements    int
}

// Normalizer rewrites presentational markup in place.
type Normalizer struct {
	cfg Config
}

// New creates a Normalizer.
func New(cfg Config) *Normalizer {
	cfg.defaults()
	return &Normalizer{cfg: cfg}
}

// Parse reads raw converter HTML into a document tree.
func (n *Normalizer) Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrParse, err)
	}
	return doc, nil
}

// Normalize mutates doc so that no bgcolor, align, valign or font markup
// and no converter-only attributes remain.
func (n *Normalizer) Normalize(doc *goquery.Document) Stats {
	var st Stats

	// Each rule prepends, so the final order is vertical-align,
	// text-align, background-color, then any existing style.
	doc.FindMatcher(bgcolorSel).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("bgcolor")
		s.RemoveAttr("bgcolor")
		if v = strings.TrimSpace(v); v != "" {
			prependStyle(s, "background-color: "+v+";")
		}
		st.Backgrounds++
	})

	doc.FindMatcher(alignSel).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("align")
		s.RemoveAttr("align")
		if v = strings.TrimSpace(v); v != "" {
			prependStyle(s, AlignStyle(goquery.NodeName(s), v))
		}
		st.Alignments++
	})

	doc.FindMatcher(valignSel).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("valign")
		s.RemoveAttr("valign")
		if v = strings.TrimSpace(v); v != "" {
			prependStyle(s, "vertical-align: "+v+";")
		}
	})

	for _, node := range doc.FindMatcher(fontSel).Nodes {
		replaceFont(node)
		st.Fonts++
	}

	for _, attr := range n.cfg.StripAttributes {
		sel := doc.Find("[" + attr + "]")
		st.Attributes += sel.Length()
		sel.RemoveAttr(attr)
	}

	for _, el := range n.cfg.StripElements {
		sel := doc.Find(el)
		st.Elements += sel.Length()
		sel.Remove()
	}

	return st
}

// TextAlign maps an HTML align value to a CSS text-align value.
// CSS has no "middle"; everything else passes through.
func TextAlign(v string) string {
	if v == "middle" {
		return "center"
	}
	return v
}

// AlignStyle maps an align attribute to the style that keeps its meaning
// on the given element. On tables align positions the table itself, on
// images it floats the image or sets its vertical position; everywhere
// else it aligns the text content.
func AlignStyle(tag, v string) string {
	lv := strings.ToLower(v)
	switch tag {
	case "table":
		switch lv {
		case "center", "middle":
			return "margin-left: auto; margin-right: auto;"
		case "left", "right":
			return "float: " + lv + ";"
		}
	case "img":
		switch lv {
		case "left", "right":
			return "float: " + lv + ";"
		case "top", "middle", "bottom", "baseline":
			return "vertical-align: " + lv + ";"
		case "texttop":
			return "vertical-align: text-top;"
		case "absmiddle":
			return "vertical-align: middle;"
		case "absbottom":
			return "vertical-align: bottom;"
		}
	}
	return "text-align: " + TextAlign(v) + ";"
}

// FontSize maps a font size attribute ("1".."7") to a CSS keyword.
// Unknown or missing values fall back to medium.
func FontSize(v string) string {
	if kw, ok := fontSizes[strings.TrimSpace(v)]; ok {
		return kw
	}
	return "medium"
}

// FontStyle builds the inline style for a font element's attributes.
// Absent attributes are omitted, never defaulted.
func FontStyle(size, color, face string) string {
	var parts []string
	if size = strings.TrimSpace(size); size != "" {
		parts = append(parts, "font-size: "+FontSize(size)+";")
	}
	if color = strings.TrimSpace(color); color != "" {
		parts = append(parts, "color: "+color+";")
	}
	if face = strings.TrimSpace(face); face != "" {
		parts = append(parts, "font-family: "+face+", sans-serif;")
	}
	return strings.Join(parts, " ")
}

func prependStyle(s *goquery.Selection, decl string) {
	existing, _ := s.Attr("style")
	s.SetAttr("style", strings.TrimSpace(decl+" "+existing))
}

// replaceFont swaps a <font> node for a styled <span> holding the same children.
func replaceFont(font *html.Node) {
	if font.Parent == nil {
		return
	}
	span := &html.Node{
		Type:     html.ElementNode,
		Data:     "span",
		DataAtom: atom.Span,
		Attr: []html.Attribute{{
			Key: "style",
			Val: FontStyle(attrValue(font, "size"), attrValue(font, "color"), attrValue(font, "face")),
		}},
	}
	for c := font.FirstChild; c != nil; {
		next := c.NextSibling
		font.RemoveChild(c)
		span.AppendChild(c)
		c = next
	}
	font.Parent.InsertBefore(span, font)
	font.Parent.RemoveChild(font)
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
