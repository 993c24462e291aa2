// Package core defines the pipeline types and interfaces for SheetPipe.
// Each stage of the pipeline is a clean, testable unit; the external
// collaborators (converter, asset store, sinks) are interfaces.
package core

import "context"

// DefaultFieldSizeLimit is the maximum number of characters a record's
// content may reach before it is flagged as oversized.
const DefaultFieldSizeLimit = 400000

// Document is one source office file, identified by its export folder.
type Document struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Dir      string `json:"dir"`
	HTMLPath string `json:"html_path"`
}

// Sheet is a single logical table within a Document.
type Sheet struct {
	Title         string `json:"title"`
	DocumentIndex int    `json:"document_index"`
	Markup        string `json:"-"`
}

// NormalizedRecord is a Sheet after style rewriting, image rewriting and
// minification, annotated by the size guard.
type NormalizedRecord struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Size          int    `json:"size"`
	ExceedsLimit  bool   `json:"exceeds_limit"`
	DocumentIndex int    `json:"document_index"`
	DocumentName  string `json:"document_name"`
}

// ImageAsset is one embedded image found in a Document's export.
type ImageAsset struct {
	DocumentIndex int    `json:"document_index"`
	DocumentName  string `json:"document_name"`
	OriginalName  string `json:"original_name"`
	ResolvedName  string `json:"resolved_name"`
	LocalPath     string `json:"local_path"`
	Key           string `json:"key"`
	RemoteID      string `json:"remote_id,omitempty"`
	Reused        bool   `json:"reused"`
}

// Resolved reports whether the asset has a remote identifier.
func (a ImageAsset) Resolved() bool {
	return a.RemoteID != ""
}

// OutputRecord is the exportable unit handed to sinks.
type OutputRecord struct {
	Position       int    `json:"position"`
	ID             string `json:"id"`
	RecordTypeID   string `json:"record_type_id"`
	Title          string `json:"title"`
	URLName        string `json:"url_name"`
	Summary        string `json:"summary"`
	Answer         string `json:"answer"`
	Category       string `json:"category"`
	Classification string `json:"classification"`
	Size           int    `json:"size"`
	ExceedsLimit   bool   `json:"exceeds_limit"`
	DocumentIndex  int    `json:"document_index"`
	DocumentName   string `json:"document_name"`
}

// DocumentRecords groups the per-document view of one Document.
type DocumentRecords struct {
	Document Document       `json:"document"`
	Records  []OutputRecord `json:"records"`
}

// SkippedDocument records a document excluded from output and why.
type SkippedDocument struct {
	Document Document `json:"document"`
	Reason   string   `json:"reason"`
}

// Result is everything a pipeline run produced.
type Result struct {
	RunID       string            `json:"run_id"`
	PerDocument []DocumentRecords `json:"per_document"`
	All         []OutputRecord    `json:"all"`
	Images      []ImageAsset      `json:"images"`
	Skipped     []SkippedDocument `json:"skipped,omitempty"`
	Uploads     int               `json:"uploads"`
}

// Converter renders one office document into an HTML export folder.
type Converter interface {
	Convert(ctx context.Context, sourcePath, outDir string) error
}

// AssetStore is the remote asset capability used for image deduplication.
type AssetStore interface {
	// Inventory returns existing asset title -> asset identifier.
	Inventory(ctx context.Context) (map[string]string, error)
	// Upload stores content under name and returns the new identifier.
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// Renderer converts one document's records into a preview file format.
type Renderer interface {
	Render(group DocumentRecords) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}

// Sink consumes an assembled Result.
type Sink interface {
	Write(ctx context.Context, result *Result) error
}
