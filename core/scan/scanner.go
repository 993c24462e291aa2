// Package scan discovers converted documents in the HTML directory.
// Each document lives in its own {index}_{name} folder holding one HTML
// export and the images the converter wrote next to it.
package scan

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// Scanner enumerates document folders.
type Scanner struct {
	logger *slog.Logger
}

// New creates a Scanner. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// Scan returns the documents under root ordered by folder index. Folders
// without a numeric index or without an HTML file are logged and skipped.
// It fails with core.ErrNoInput when no document can be processed.
func (s *Scanner) Scan(root string) ([]core.Document, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrNoInput, root, err)
	}

	var docs []core.Document
	folders := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		index, ok := FolderIndex(e.Name())
		if !ok {
			s.logger.Warn("skipping folder without index prefix", "folder", e.Name())
			continue
		}
		folders++

		dir := filepath.Join(root, e.Name())
		htmlPath, err := s.findHTML(dir)
		if err != nil {
			s.logger.Warn("skipping folder", "folder", e.Name(), "error", err)
			continue
		}
		docs = append(docs, core.Document{
			Index:    index,
			Name:     DocumentName(htmlPath),
			Dir:      dir,
			HTMLPath: htmlPath,
		})
	}

	if folders == 0 {
		return nil, fmt.Errorf("%w: no document folders in %s", core.ErrNoInput, root)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no HTML export in any folder of %s", core.ErrNoInput, root)
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Index < docs[j].Index })
	return docs, nil
}

// findHTML returns the HTML export of a folder. When the converter left
// several, the first by name is used.
func (s *Scanner) findHTML(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() || !IsHTMLFile(e.Name()) {
			continue
		}
		found = append(found, e.Name())
	}
	if len(found) == 0 {
		return "", errors.New("no .html file")
	}
	sort.Strings(found)
	if len(found) > 1 {
		s.logger.Warn("several HTML files in folder, using the first", "folder", dir, "files", found)
	}
	return filepath.Join(dir, found[0]), nil
}

// FolderIndex parses the leading index of an {index}_{name} folder.
func FolderIndex(folder string) (int, bool) {
	prefix, _, _ := strings.Cut(folder, "_")
	n, err := strconv.Atoi(prefix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// IsHTMLFile reports whether a file name is an HTML export.
func IsHTMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// DocumentName is the base name of the HTML export without extension.
func DocumentName(htmlPath string) string {
	base := filepath.Base(htmlPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
