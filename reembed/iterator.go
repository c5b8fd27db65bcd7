package reembed

import (
	"context"
	"math"

	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/storage"
)

const (
	// DefaultBatchSize is the default number of documents fetched per batch.
	DefaultBatchSize = 100
)

// RecordIterator pages through stored documents in ascending ID order.
type RecordIterator struct {
	repo      storage.DocumentRepository
	batchSize int
	start     core.ID
	exhausted bool
}

// NewRecordIterator creates an iterator over every document in repo.
// A non-positive batchSize selects DefaultBatchSize.
func NewRecordIterator(repo storage.DocumentRepository, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &RecordIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// StartAfter skips every document with an ID <= id.
func (it *RecordIterator) StartAfter(id core.ID) *RecordIterator {
	it.exhausted = id == math.MaxUint64
	it.start = id + 1
	return it
}

// ForEach calls fn with each batch. It stops at the first error from fn and
// checks ctx between batches.
func (it *RecordIterator) ForEach(ctx context.Context, fn func([]*core.StoredDocument) error) error {
	if it.exhausted {
		return nil
	}

	start := it.start
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := it.repo.ListDocuments(ctx, start, it.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}

		last := batch[len(batch)-1].Id
		if len(batch) < it.batchSize || last == math.MaxUint64 {
			return nil
		}
		start = last + 1
	}
}
