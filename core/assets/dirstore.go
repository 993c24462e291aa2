// Package assets implements core.AssetStore backends: a local directory,
// a REST asset API and a Cloud Storage bucket.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirStore keeps assets as files in a directory. The identifier of an
// asset is its file name and its title the name without extension.
type DirStore struct {
	Dir string
}

// NewDirStore creates the directory if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating asset directory: %w", err)
	}
	return &DirStore{Dir: dir}, nil
}

// Inventory lists the files of the directory.
func (s *DirStore) Inventory(ctx context.Context) (map[string]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.Dir, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out[Title(e.Name())] = e.Name()
	}
	return out, ctx.Err()
}

// Upload writes data under name. An existing file with that name is kept
// and its identifier returned.
func (s *DirStore) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	base := filepath.Base(name)
	f, err := os.OpenFile(filepath.Join(s.Dir, base), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return base, nil
	}
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", base, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("writing %s: %w", base, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", base, err)
	}
	return base, nil
}

// Title is the asset title stored for a file name.
func Title(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
