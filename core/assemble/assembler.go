// Package assemble turns normalized records into the ordered output views
// handed to the sinks.
package assemble

import (
	"log/slog"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// Defaults for the constant record fields.
const (
	DefaultID             = "test"
	DefaultRecordTypeID   = "012N00000036GnwIAE"
	DefaultCategory       = "Auto Import"
	DefaultClassification = "Knowledge Material"
	DefaultTitleSuffix    = "_(test-html-import)"
)

// Fields holds the values copied into every output record.
type Fields struct {
	ID             string `yaml:"id"`
	RecordTypeID   string `yaml:"record_type_id"`
	Category       string `yaml:"category"`
	Classification string `yaml:"classification"`
	// TitleSuffix is appended to titles in the per-document view only.
	TitleSuffix string `yaml:"title_suffix"`
}

// DefaultFields returns the field values used by the original import files.
func DefaultFields() Fields {
	return Fields{
		ID:             DefaultID,
		RecordTypeID:   DefaultRecordTypeID,
		Category:       DefaultCategory,
		Classification: DefaultClassification,
		TitleSuffix:    DefaultTitleSuffix,
	}
}

// Group is the normalized output of one document.
type Group struct {
	Document core.Document
	Records  []core.NormalizedRecord
}

// Config configures an Assembler.
type Config struct {
	Fields  Fields
	Slugger *Slugger
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Slugger == nil {
		c.Slugger = NewSlugger("", nil)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Assembler builds output records. All slugs come from one Slugger, so they
// are unique across both views of a run.
type Assembler struct {
	cfg Config
}

// New creates an Assembler.
func New(cfg Config) *Assembler {
	cfg.defaults()
	return &Assembler{cfg: cfg}
}

// PerDocument builds one view per document. Oversized records are kept and
// positions restart at 0 in every document.
func (a *Assembler) PerDocument(groups []Group) []core.DocumentRecords {
	out := make([]core.DocumentRecords, 0, len(groups))
	for _, g := range groups {
		records := make([]core.OutputRecord, 0, len(g.Records))
		for i, r := range g.Records {
			rec := a.record(i, r)
			rec.Title = r.Title + a.cfg.Fields.TitleSuffix
			records = append(records, rec)
		}
		out = append(out, core.DocumentRecords{Document: g.Document, Records: records})
	}
	return out
}

// All flattens every document's records in document order. Records that
// exceed the size limit are dropped and logged; positions are contiguous.
func (a *Assembler) All(groups []Group) []core.OutputRecord {
	var out []core.OutputRecord
	dropped := 0
	for _, g := range groups {
		for _, r := range g.Records {
			if r.ExceedsLimit {
				a.cfg.Logger.Warn("record exceeds size limit, excluded from aggregate",
					"title", r.Title, "document", r.DocumentName, "size", r.Size)
				dropped++
				continue
			}
			out = append(out, a.record(len(out), r))
		}
	}
	if dropped > 0 {
		a.cfg.Logger.Info("aggregate assembled", "records", len(out), "dropped", dropped)
	}
	return out
}

func (a *Assembler) record(pos int, r core.NormalizedRecord) core.OutputRecord {
	f := a.cfg.Fields
	return core.OutputRecord{
		Position:       pos,
		ID:             f.ID,
		RecordTypeID:   f.RecordTypeID,
		Title:          r.Title,
		URLName:        a.cfg.Slugger.Next(),
		Summary:        r.Title,
		Answer:         r.Content,
		Category:       f.Category,
		Classification: f.Classification,
		Size:           r.Size,
		ExceedsLimit:   r.ExceedsLimit,
		DocumentIndex:  r.DocumentIndex,
		DocumentName:   r.DocumentName,
	}
}
