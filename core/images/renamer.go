package images

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

var imgSel = cascadia.MustCompile("img[src]")

// Renamer gives every local image of a document its deterministic name,
// both on disk and in the document's img references.
type Renamer struct {
	logger *slog.Logger
}

// NewRenamer creates a Renamer. A nil logger uses slog.Default().
func NewRenamer(logger *slog.Logger) *Renamer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renamer{logger: logger}
}

type renamePlan struct {
	from, tmp, to string
}

// Rename scans img elements in document order, assigns each distinct local
// image source its resolved name, renames the file and rewrites src.
// Running it again over the same export yields the same names: a missing
// source whose target already exists counts as already renamed.
func (r *Renamer) Rename(doc core.Document, dom *goquery.Document) []core.ImageAsset {
	log := r.logger.With("document", doc.Name, "index", doc.Index)

	bySrc := make(map[string]int)
	var assets []core.ImageAsset
	var plans []renamePlan

	dom.FindMatcher(imgSel).Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if !IsLocalRef(src) || !IsImageFile(src) {
			return
		}
		if i, ok := bySrc[src]; ok {
			img.SetAttr("src", assets[i].ResolvedName)
			return
		}

		original := localName(src)
		resolved := ResolvedName(doc.Name, len(assets)+1, original)
		from := filepath.Join(doc.Dir, filepath.FromSlash(original))
		to := filepath.Join(doc.Dir, resolved)

		asset := core.ImageAsset{
			DocumentIndex: doc.Index,
			DocumentName:  doc.Name,
			OriginalName:  original,
			ResolvedName:  resolved,
			LocalPath:     to,
			Key:           Key(resolved),
		}

		switch {
		case from == to:
		case exists(from):
			plans = append(plans, renamePlan{from: from, tmp: to + ".renaming", to: to})
		case exists(to):
			log.Debug("image already renamed", "image", resolved)
		default:
			log.Warn("image file missing", "image", original)
		}

		bySrc[src] = len(assets)
		assets = append(assets, asset)
		img.SetAttr("src", resolved)
	})

	// Two phases so that a source named like another image's target is
	// never overwritten before it has been moved.
	var done []renamePlan
	for _, p := range plans {
		if err := os.Rename(p.from, p.tmp); err != nil {
			log.Warn("renaming image failed", "from", p.from, "error", err)
			r.keepOriginal(assets, p)
			continue
		}
		done = append(done, p)
	}
	for _, p := range done {
		if err := os.Rename(p.tmp, p.to); err != nil {
			log.Warn("renaming image failed", "from", p.tmp, "error", err)
			r.keepOriginal(assets, renamePlan{from: p.tmp, to: p.to})
		}
	}

	if len(assets) > 0 {
		log.Debug("images renamed", "count", len(assets), "moved", len(done))
	}
	return assets
}

// keepOriginal points an asset back at the file that could not be moved so
// its content can still be uploaded under the resolved name.
func (r *Renamer) keepOriginal(assets []core.ImageAsset, p renamePlan) {
	for i := range assets {
		if assets[i].LocalPath == p.to {
			assets[i].LocalPath = p.from
		}
	}
}

// localName decodes an img src into a path relative to the export folder.
func localName(src string) string {
	if decoded, err := url.PathUnescape(src); err == nil {
		return decoded
	}
	return src
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// ReadAsset loads the local content of an image.
func ReadAsset(a core.ImageAsset) ([]byte, error) {
	data, err := os.ReadFile(a.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", a.LocalPath, err)
	}
	return data, nil
}
