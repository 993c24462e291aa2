// Package render — PDF renderer.
// Lays out the Markdown preview of every record with gofpdf: a heading per
// record, table rows as plain lines, images are not embedded.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// PDFRenderer renders a document's records as a PDF document.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

var (
	tableSepRegex  = regexp.MustCompile(`^\|?[-:| ]+\|?$`)
	numberedRegex  = regexp.MustCompile(`^\d+\.\s`)
	italicRegex    = regexp.MustCompile(`(?:^|\s)\*([^*]+)\*(?:\s|$)`)
	inlineCodeRe   = regexp.MustCompile("`([^`]+)`")
	imageLinkRegex = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	textLinkRegex  = regexp.MustCompile(`\[([^\]]*)\]\([^)]+\)`)
)

// Render converts the records into PDF bytes.
func (r *PDFRenderer) Render(group core.DocumentRecords) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, tr(group.Document.Name), "", "L", false)
	pdf.Ln(4)

	for _, rec := range group.Records {
		md, err := ToMarkdown(rec)
		if err != nil {
			return nil, err
		}

		renderHeading(pdf, tr(rec.Title), 2)

		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		meta := fmt.Sprintf("%s  |  %d characters", rec.URLName, rec.Size)
		if rec.ExceedsLimit {
			meta += "  |  exceeds size limit"
		}
		pdf.MultiCell(0, 5, tr(meta), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(3)

		renderLines(pdf, tr, md)
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

func renderLines(pdf *gofpdf.Fpdf, tr func(string) string, md string) {
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			pdf.Ln(3)
		case strings.HasPrefix(trimmed, "#"):
			level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
			renderHeading(pdf, tr(strings.TrimSpace(strings.TrimLeft(trimmed, "# "))), level+2)
		case tableSepRegex.MatchString(trimmed) && strings.Contains(trimmed, "-"):
			// separator rows carry no content
		case strings.HasPrefix(trimmed, "|"):
			pdf.SetFont("Courier", "", 8)
			pdf.MultiCell(0, 4, tr(cleanInlineMarkdown(trimmed)), "", "L", false)
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr("- "+cleanInlineMarkdown(trimmed[2:])), "", "L", false)
		case numberedRegex.MatchString(trimmed):
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(trimmed)), "", "L", false)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(cleanInlineMarkdown(line)), "", "L", false)
		}
	}
}

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, cleanInlineMarkdown(text), "", "L", false)
	pdf.Ln(2)
}

// cleanInlineMarkdown strips inline Markdown formatting for PDF rendering.
func cleanInlineMarkdown(text string) string {
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")
	text = italicRegex.ReplaceAllString(text, " $1 ")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = imageLinkRegex.ReplaceAllString(text, "[image: $1]")
	text = textLinkRegex.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
