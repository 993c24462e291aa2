package images

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// Config configures a Resolver.
type Config struct {
	// Store uploads unmatched images. Nil disables uploads.
	Store core.AssetStore
	// Index is the inventory snapshot. Nil means an empty inventory.
	Index *Index
	// Limiter paces uploads. Nil means unlimited.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Index == nil {
		c.Index = NewIndex(nil)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Resolver assigns remote identifiers to image assets, reusing existing
// remote assets whenever the inventory already holds the same key.
type Resolver struct {
	cfg      Config
	uploaded map[string]string
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config) *Resolver {
	cfg.defaults()
	return &Resolver{
		cfg:      cfg,
		uploaded: make(map[string]string),
	}
}

// Resolve returns the assets with RemoteID filled in where possible and the
// number of uploads performed. A failure on one image is logged and leaves
// only that image unresolved.
func (r *Resolver) Resolve(ctx context.Context, assets []core.ImageAsset) ([]core.ImageAsset, int) {
	out := make([]core.ImageAsset, len(assets))
	copy(out, assets)

	uploads := 0
	for i := range out {
		a := &out[i]
		log := r.cfg.Logger.With("document", a.DocumentName, "image", a.ResolvedName)

		if id, ok := r.cfg.Index.Lookup(a.Key); ok {
			a.RemoteID = id
			a.Reused = true
			log.Debug("reusing existing asset", "id", id)
			continue
		}
		if id, ok := r.uploaded[a.Key]; ok {
			a.RemoteID = id
			a.Reused = true
			continue
		}
		if r.cfg.Store == nil {
			log.Warn("image left unresolved", "error", fmt.Errorf("%w: no asset store configured", core.ErrAssetResolution))
			continue
		}

		id, err := r.upload(ctx, *a)
		if err != nil {
			log.Warn("image left unresolved", "error", err)
			continue
		}
		a.RemoteID = id
		r.uploaded[a.Key] = id
		uploads++
		log.Info("uploaded image", "id", id)
	}
	return out, uploads
}

func (r *Resolver) upload(ctx context.Context, a core.ImageAsset) (string, error) {
	data, err := ReadAsset(a)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrAssetResolution, err)
	}
	if r.cfg.Limiter != nil {
		if err := r.cfg.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", core.ErrAssetResolution, err)
		}
	}
	id, err := r.cfg.Store.Upload(ctx, a.ResolvedName, data)
	if err != nil {
		return "", fmt.Errorf("%w: uploading %s: %v", core.ErrAssetResolution, a.ResolvedName, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: store returned an empty id for %s", core.ErrAssetResolution, a.ResolvedName)
	}
	return id, nil
}

// RemoteURL builds the canonical remote location of an asset.
// The base URL is used verbatim as a prefix so that both path style
// ("https://host/assets/") and query style ("...?id=") bases work.
func RemoteURL(baseURL, id string) string {
	return baseURL + id
}

// Rewrite points every resolved img reference of a document at its remote
// URL. References to images that could not be resolved are left as they
// are; the number of such references is returned.
func Rewrite(dom *goquery.Document, assets []core.ImageAsset, baseURL string, logger *slog.Logger) (rewritten, unresolved int) {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]core.ImageAsset, len(assets))
	for _, a := range assets {
		byName[a.ResolvedName] = a
	}

	dom.FindMatcher(imgSel).Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		a, ok := byName[strings.TrimSpace(src)]
		if !ok {
			return
		}
		if !a.Resolved() {
			logger.Warn("image reference unresolved", "document", a.DocumentName, "image", a.ResolvedName)
			unresolved++
			return
		}
		img.SetAttr("src", RemoteURL(baseURL, a.RemoteID))
		rewritten++
	})
	return rewritten, unresolved
}
