package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexerRequired is returned when a pipeline is created without an indexer.
	ErrIndexerRequired = errors.New("indexer required")

	// ErrNoDocuments is returned when Ingest is called with nothing to index.
	ErrNoDocuments = errors.New("no documents to ingest")

	// ErrInvalidBatchSize is returned for a non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
)

// BatchError reports a batch that could not be indexed.
type BatchError struct {
	// Offset is the position of the first chunk of the batch.
	Offset int
	Size   int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch at offset %d (%d chunks): %v", e.Offset, e.Size, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
