package storage

import (
	"context"

	"github.com/poiesic/multiquery/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// FindSimilar finds stored documents similar to the given vector.
	// Returns documents with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first), ties by ID.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository stores documents together with their embeddings.
type DocumentRepository interface {
	Repository

	// UpsertDocuments writes documents keyed by their ID.
	// Documents with ID=0 get core.IDFromDocument. InsertedAt is kept from an
	// existing record with the same ID; UpdatedAt is always refreshed.
	// Returns the documents with IDs and timestamps populated.
	UpsertDocuments(ctx context.Context, docs ...*core.StoredDocument) ([]*core.StoredDocument, error)

	// UpdateVectors replaces the vectors of existing documents.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateVectors(ctx context.Context, docs ...*core.StoredDocument) error

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.StoredDocument, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.StoredDocument, error)

	// ListDocuments returns up to limit documents with ID >= start in ascending
	// ID order.
	ListDocuments(ctx context.Context, start core.ID, limit int) ([]*core.StoredDocument, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)
}

// CheckpointRepository persists processor checkpoints.
type CheckpointRepository interface {
	// SaveCheckpoint writes the checkpoint for its processor type and sets UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for processorType, or nil if none exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint for processorType. Missing
	// checkpoints are not an error.
	DeleteCheckpoint(ctx context.Context, processorType string) error
}
