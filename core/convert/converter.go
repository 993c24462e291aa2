// Package convert renders source office documents into HTML folders with
// LibreOffice, one {index}_{name} folder per document.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// DefaultBinary is the LibreOffice executable.
const DefaultBinary = "soffice"

// DefaultExtensions are the source formats picked up from the input folder.
var DefaultExtensions = []string{".xlsx", ".xls", ".ods", ".docx", ".doc", ".odt"}

// Soffice converts one document by running soffice headless.
type Soffice struct {
	Binary string
}

// Args returns the soffice arguments converting source into outDir.
func Args(source, outDir string) []string {
	return []string{"--headless", "--convert-to", "html", "--outdir", outDir, source}
}

// Convert runs the converter and waits for it to exit.
func (s Soffice) Convert(ctx context.Context, source, outDir string) error {
	bin := s.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, Args(source, outDir)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%w: %s: %v: %s", core.ErrConversion, filepath.Base(source), err, msg)
		}
		return fmt.Errorf("%w: %s: %v", core.ErrConversion, filepath.Base(source), err)
	}
	return nil
}

// Config configures a Batch.
type Config struct {
	Converter  core.Converter
	Extensions []string
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.Converter == nil {
		c.Converter = Soffice{}
	}
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Report summarizes a batch conversion.
type Report struct {
	Converted []string
	Failed    map[string]error
}

// Batch converts every source document of a folder.
type Batch struct {
	cfg Config
}

// NewBatch creates a Batch.
func NewBatch(cfg Config) *Batch {
	cfg.defaults()
	return &Batch{cfg: cfg}
}

// Sources lists the convertible files of sourceDir sorted by name.
func (b *Batch) Sources(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source folder: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !b.accepts(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

func (b *Batch) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range b.cfg.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// Run clears htmlDir and converts each source into htmlDir/{index}_{base}.
// A failing document is recorded in the report and does not stop the batch.
// It fails with core.ErrNoInput when sourceDir holds nothing convertible.
func (b *Batch) Run(ctx context.Context, sourceDir, htmlDir string) (*Report, error) {
	sources, err := b.Sources(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNoInput, err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no convertible documents in %s", core.ErrNoInput, sourceDir)
	}

	if err := os.RemoveAll(htmlDir); err != nil {
		return nil, fmt.Errorf("clearing html folder: %w", err)
	}
	if err := os.MkdirAll(htmlDir, 0755); err != nil {
		return nil, fmt.Errorf("creating html folder: %w", err)
	}

	report := &Report{Failed: make(map[string]error)}
	for i, name := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		outDir := filepath.Join(htmlDir, fmt.Sprintf("%d_%s", i, base))
		log := b.cfg.Logger.With("document", name, "index", i)

		if err := os.MkdirAll(outDir, 0755); err != nil {
			report.Failed[name] = err
			log.Error("creating document folder failed", "error", err)
			continue
		}
		log.Info("converting document")
		if err := b.cfg.Converter.Convert(ctx, filepath.Join(sourceDir, name), outDir); err != nil {
			report.Failed[name] = err
			log.Error("conversion failed", "error", err)
			continue
		}
		report.Converted = append(report.Converted, name)
	}
	return report, nil
}
