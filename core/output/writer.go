// Package output writes a run's records to disk in the import layout:
// output-{index}.csv and output-{index}.html per document, output.csv for
// the aggregate, plus optional previews named output-{index}{ext}.
package output

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// AggregateFile is the file name of the all-documents view.
const AggregateFile = "output.csv"

// Header is the CSV header expected by the knowledge-base importer.
var Header = []string{
	"Knowledge__kav", "Id", "RecordTypeId", "Title", "UrlName",
	"Summary", "Answer", "Categorie__c", "Category__c",
}

// Config configures a Writer.
type Config struct {
	// Dir is cleared before every write.
	Dir       string
	Renderers []core.Renderer
	Logger    *slog.Logger
}

// Writer is a core.Sink writing files into one directory.
type Writer struct {
	cfg     Config
	written []string
}

// New creates a Writer. If Dir is empty, it defaults to "output_result"
// under the current working directory.
func New(cfg Config) (*Writer, error) {
	if cfg.Dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		cfg.Dir = filepath.Join(wd, "output_result")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Writer{cfg: cfg}, nil
}

// Written returns the paths created by the last Write.
func (w *Writer) Written() []string {
	return w.written
}

// Write replaces the directory content with the files of result.
func (w *Writer) Write(ctx context.Context, result *core.Result) error {
	w.written = nil
	if err := os.RemoveAll(w.cfg.Dir); err != nil {
		return fmt.Errorf("clearing output directory: %w", err)
	}
	if err := os.MkdirAll(w.cfg.Dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, group := range result.PerDocument {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(group.Records) == 0 {
			w.cfg.Logger.Info("no content, skipping document output", "document", group.Document.Name)
			continue
		}
		if err := w.writeDocument(group); err != nil {
			return err
		}
	}

	path := filepath.Join(w.cfg.Dir, AggregateFile)
	if err := w.writeFile(path, func(f io.Writer) error { return WriteCSV(f, result.All) }); err != nil {
		return err
	}
	w.cfg.Logger.Info("aggregate written", "path", path, "records", len(result.All))
	return nil
}

func (w *Writer) writeDocument(group core.DocumentRecords) error {
	base := filepath.Join(w.cfg.Dir, fmt.Sprintf("output-%d", group.Document.Index))

	if err := w.writeFile(base+".csv", func(f io.Writer) error { return WriteCSV(f, group.Records) }); err != nil {
		return err
	}
	if err := w.writeFile(base+".html", func(f io.Writer) error { return WriteHTML(f, group.Records) }); err != nil {
		return err
	}

	for _, r := range w.cfg.Renderers {
		data, err := r.Render(group)
		if err != nil {
			w.cfg.Logger.Warn("preview failed", "document", group.Document.Name, "format", r.Extension(), "error", err)
			continue
		}
		if err := w.writeFile(base+r.Extension(), func(f io.Writer) error {
			_, err := f.Write(data)
			return err
		}); err != nil {
			return err
		}
	}
	w.cfg.Logger.Debug("document written", "document", group.Document.Name, "records", len(group.Records))
	return nil
}

func (w *Writer) writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", path, err)
	}
	w.written = append(w.written, path)
	return nil
}

// WriteCSV writes records with the importer header. Text fields are
// always quoted with inner quotes doubled; the position column is numeric
// and stays bare.
func WriteCSV(out io.Writer, records []core.OutputRecord) error {
	bw := bufio.NewWriter(out)
	writeRow(bw, Header, -1)
	for _, r := range records {
		writeRow(bw, []string{
			strconv.Itoa(r.Position),
			r.ID,
			r.RecordTypeID,
			r.Title,
			r.URLName,
			r.Summary,
			r.Answer,
			r.Category,
			r.Classification,
		}, 0)
	}
	return bw.Flush()
}

// writeRow writes one CSV line. The field at index bare is written
// unquoted. Write errors are sticky and surface on Flush.
func writeRow(w *bufio.Writer, fields []string, bare int) {
	for i, f := range fields {
		if i > 0 {
			_ = w.WriteByte(',')
		}
		if i == bare {
			_, _ = w.WriteString(f)
			continue
		}
		_ = w.WriteByte('"')
		_, _ = w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('\n')
}

// WriteHTML writes the content of every record, one per line, for
// inspection in a browser.
func WriteHTML(out io.Writer, records []core.OutputRecord) error {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		parts = append(parts, r.Answer)
	}
	_, err := io.WriteString(out, strings.Join(parts, "\n"))
	return err
}
