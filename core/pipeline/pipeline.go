// Package pipeline runs the document stages in order:
// scan → normalize → locate tables → rename → resolve → rewrite → serialize → minify → size → assemble.
//
// Failures are contained to the smallest unit: one image stays unresolved,
// one document is skipped. Only a run without any input fails as a whole.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/sheetpipe/core"
	"github.com/gaurav-prasanna/sheetpipe/core/assemble"
	"github.com/gaurav-prasanna/sheetpipe/core/extract"
	"github.com/gaurav-prasanna/sheetpipe/core/images"
	"github.com/gaurav-prasanna/sheetpipe/core/minify"
	"github.com/gaurav-prasanna/sheetpipe/core/normalize"
	"github.com/gaurav-prasanna/sheetpipe/core/scan"
	"github.com/gaurav-prasanna/sheetpipe/core/size"
)

// Config configures a Pipeline.
type Config struct {
	// HTMLDir holds the converter's {index}_{name} folders.
	HTMLDir string
	// SizeLimit is the per-record character limit.
	SizeLimit int
	// AssetBaseURL prefixes remote asset identifiers in img src.
	AssetBaseURL string
	// Store resolves images. Nil leaves every image local.
	Store core.AssetStore
	// UploadLimiter paces uploads. Nil means unlimited.
	UploadLimiter *rate.Limiter

	StripAttributes []string
	StripElements   []string

	Fields     assemble.Fields
	SlugPrefix string
	// Clock stamps slugs. Nil uses time.Now.
	Clock func() time.Time

	// OnDocument is called once per scanned document after its records
	// were built or it was skipped.
	OnDocument func(doc core.Document, err error)

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.SizeLimit <= 0 {
		c.SizeLimit = core.DefaultFieldSizeLimit
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline turns converter output into assembled records.
type Pipeline struct {
	cfg        Config
	scanner    *scan.Scanner
	normalizer *normalize.Normalizer
	renamer    *images.Renamer
	extractor  *extract.TableExtractor
	minifier   *minify.Minifier
	guard      size.Guard
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:     cfg,
		scanner: scan.New(cfg.Logger),
		normalizer: normalize.New(normalize.Config{
			StripAttributes: cfg.StripAttributes,
			StripElements:   cfg.StripElements,
			Logger:          cfg.Logger,
		}),
		renamer:   images.NewRenamer(cfg.Logger),
		extractor: extract.New(),
		minifier:  minify.New(),
		guard:     size.New(cfg.SizeLimit),
	}
}

// docState carries one document between stages.
type docState struct {
	doc    core.Document
	dom    *goquery.Document
	tables []extract.Located
	assets []core.ImageAsset
}

// Run processes every document of the HTML directory.
func (p *Pipeline) Run(ctx context.Context) (*core.Result, error) {
	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}
	log := p.cfg.Logger.With("run", runID.String())
	result := &core.Result{RunID: runID.String()}

	// 1. Scan
	docs, err := p.scanner.Scan(p.cfg.HTMLDir)
	if err != nil {
		return nil, err
	}
	log.Info("documents found", "count", len(docs))

	skip := func(doc core.Document, err error) {
		log.Warn("skipping document", "document", doc.Name, "index", doc.Index, "error", err)
		result.Skipped = append(result.Skipped, core.SkippedDocument{Document: doc, Reason: err.Error()})
		p.notify(doc, err)
	}

	// 2. Parse, normalize, locate tables and rename images per document.
	// Documents failing here never reach the asset store.
	var states []*docState
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st, err := p.prepare(doc)
		if err != nil {
			skip(doc, err)
			continue
		}
		states = append(states, st)
	}

	// 3. Resolve every image of the run against one inventory snapshot.
	var all []core.ImageAsset
	for _, st := range states {
		all = append(all, st.assets...)
	}
	resolved, uploads := p.resolve(ctx, log, all)
	result.Images = resolved
	result.Uploads = uploads

	byDoc := make(map[int][]core.ImageAsset)
	for _, a := range resolved {
		byDoc[a.DocumentIndex] = append(byDoc[a.DocumentIndex], a)
	}

	// 4. Rewrite, serialize, minify and size per document.
	var groups []assemble.Group
	for _, st := range states {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := p.records(st, byDoc[st.doc.Index])
		if err != nil {
			skip(st.doc, err)
			continue
		}
		if len(records) == 0 {
			log.Warn("document has no tables", "document", st.doc.Name, "index", st.doc.Index)
		}
		groups = append(groups, assemble.Group{Document: st.doc, Records: records})
		p.notify(st.doc, nil)
	}

	// 5. Assemble both views from one slug sequence.
	asm := assemble.New(assemble.Config{
		Fields:  p.cfg.Fields,
		Slugger: assemble.NewSlugger(p.cfg.SlugPrefix, p.cfg.Clock),
		Logger:  log,
	})
	result.PerDocument = asm.PerDocument(groups)
	result.All = asm.All(groups)

	log.Info("run complete",
		"documents", len(groups),
		"skipped", len(result.Skipped),
		"records", len(result.All),
		"images", len(result.Images),
		"uploads", result.Uploads)
	return result, nil
}

func (p *Pipeline) prepare(doc core.Document) (*docState, error) {
	raw, err := os.ReadFile(doc.HTMLPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrParse, doc.HTMLPath, err)
	}
	dom, err := p.normalizer.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	stats := p.normalizer.Normalize(dom)
	p.cfg.Logger.Debug("document normalized",
		"document", doc.Name,
		"backgrounds", stats.Backgrounds,
		"alignments", stats.Alignments,
		"fonts", stats.Fonts,
		"attributes", stats.Attributes,
		"elements", stats.Elements)

	tables, err := p.extractor.Locate(dom, doc.Name)
	if err != nil {
		return nil, err
	}

	return &docState{
		doc:    doc,
		dom:    dom,
		tables: tables,
		assets: p.renamer.Rename(doc, dom),
	}, nil
}

func (p *Pipeline) resolve(ctx context.Context, log *slog.Logger, assets []core.ImageAsset) ([]core.ImageAsset, int) {
	if len(assets) == 0 {
		return nil, 0
	}
	store := p.cfg.Store
	index, err := images.BuildIndex(ctx, store)
	if err != nil {
		// No uploads without a snapshot.
		log.Error("inventory unavailable, images stay local", "error", err)
		index = images.NewIndex(nil)
		store = nil
	}
	log.Info("inventory indexed", "assets", index.Len())

	r := images.NewResolver(images.Config{
		Store:   store,
		Index:   index,
		Limiter: p.cfg.UploadLimiter,
		Logger:  log,
	})
	return r.Resolve(ctx, assets)
}

func (p *Pipeline) records(st *docState, assets []core.ImageAsset) ([]core.NormalizedRecord, error) {
	if len(assets) > 0 {
		images.Rewrite(st.dom, assets, p.cfg.AssetBaseURL, p.cfg.Logger)
	}

	sheets, err := p.extractor.Serialize(st.tables, st.doc.Index)
	if err != nil {
		return nil, err
	}

	records := make([]core.NormalizedRecord, 0, len(sheets))
	for _, sheet := range sheets {
		content, err := p.minifier.String(sheet.Markup)
		if err != nil {
			p.cfg.Logger.Warn("minify failed, keeping markup as is", "title", sheet.Title, "error", err)
			content = sheet.Markup
		}
		n, exceeds := p.guard.Evaluate(content)
		if exceeds {
			p.cfg.Logger.Warn("record exceeds size limit", "title", sheet.Title, "size", n, "limit", p.guard.Limit)
		}
		records = append(records, core.NormalizedRecord{
			Title:         sheet.Title,
			Content:       content,
			Size:          n,
			ExceedsLimit:  exceeds,
			DocumentIndex: st.doc.Index,
			DocumentName:  st.doc.Name,
		})
	}
	return records, nil
}

func (p *Pipeline) notify(doc core.Document, err error) {
	if p.cfg.OnDocument != nil {
		p.cfg.OnDocument(doc, err)
	}
}
