// Package batch splits the aggregate record list into request-sized
// batches for bulk creation.
package batch

import "github.com/gaurav-prasanna/sheetpipe/core"

// DefaultSize matches the usual bulk limit of knowledge-base APIs.
const DefaultSize = 200

// Batcher splits records into fixed-size batches.
type Batcher struct {
	Size int // records per batch
}

// New creates a Batcher with the given batch size.
// Defaults to DefaultSize if size <= 0.
func New(size int) *Batcher {
	if size <= 0 {
		size = DefaultSize
	}
	return &Batcher{Size: size}
}

// Split returns contiguous batches of at most Size records, preserving order.
// The batches share the backing array of records.
func (b *Batcher) Split(records []core.OutputRecord) [][]core.OutputRecord {
	if len(records) == 0 {
		return nil
	}

	var batches [][]core.OutputRecord
	for i := 0; i < len(records); i += b.Size {
		end := i + b.Size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[i:end:end])
	}
	return batches
}
