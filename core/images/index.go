package images

import (
	"context"
	"fmt"
	"sort"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

// Index is a read-only snapshot of the remote asset inventory, keyed by
// normalized title. It is built once per run before any upload decision.
type Index struct {
	entries map[string]string
}

// NewIndex snapshots an inventory of title -> identifier. When several
// titles normalize to the same key, the lexically first title wins so the
// snapshot does not depend on map iteration order.
func NewIndex(inventory map[string]string) *Index {
	titles := make([]string, 0, len(inventory))
	for title := range inventory {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	entries := make(map[string]string, len(titles))
	for _, title := range titles {
		key := NormalizeTitle(title)
		if key == "" {
			continue
		}
		if _, dup := entries[key]; dup {
			continue
		}
		entries[key] = inventory[title]
	}
	return &Index{entries: entries}
}

// BuildIndex queries the store's inventory and snapshots it.
// A nil store yields an empty index.
func BuildIndex(ctx context.Context, store core.AssetStore) (*Index, error) {
	if store == nil {
		return NewIndex(nil), nil
	}
	inventory, err := store.Inventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: querying inventory: %v", core.ErrAssetResolution, err)
	}
	return NewIndex(inventory), nil
}

// Lookup returns the existing identifier for a key.
func (i *Index) Lookup(key string) (string, bool) {
	id, ok := i.entries[NormalizeTitle(key)]
	return id, ok
}

// Len returns the number of distinct keys.
func (i *Index) Len() int {
	return len(i.entries)
}
