// Package local implements an embedded similarity index persisted in Badger.
//
// Documents are embedded on write, their vectors normalized and stored under
// their content ID, so writing the same document twice keeps one copy.
// Search is a brute-force scan; it suits collections that fit a single
// process and need no external service.
package local

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/index"
	"github.com/poiesic/multiquery/storage"
)

// Index is an index.Store over a DocumentRepository.
// It is safe for concurrent use.
type Index struct {
	repo          storage.DocumentRepository
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

var _ index.Store = (*Index)(nil)

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// If not provided, the default logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger.With("component", "local-index")
		return nil
	}
}

// WithMinSimilarity drops matches scoring below threshold. The default of -1
// keeps every document that has a vector.
func WithMinSimilarity(threshold float32) Option {
	return func(i *Index) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("%w: similarity threshold %v outside [-1, 1]", index.ErrInvalidVectorStore, threshold)
		}
		i.minSimilarity = threshold
		return nil
	}
}

// New creates an Index. A nil embedder fails with index.ErrInvalidEmbedding.
func New(repo storage.DocumentRepository, embedder ai.Embedder, opts ...Option) (*Index, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: repository is nil", index.ErrInvalidVectorStore)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is nil", index.ErrInvalidEmbedding)
	}

	i := &Index{
		repo:          repo,
		embedder:      embedder,
		minSimilarity: -1,
		logger:        slog.Default().With("component", "local-index"),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Search embeds query and returns up to k stored documents in score order.
func (i *Index) Search(ctx context.Context, query string, k int) ([]core.Document, error) {
	if k <= 0 {
		return []core.Document{}, nil
	}

	vector, err := i.embedder.EmbedText(ctx, query)
	if err != nil {
		i.logger.Error("failed to embed query", "err", err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := i.repo.FindSimilar(ctx, core.NormalizeVector(vector), i.minSimilarity, k)
	if err != nil {
		i.logger.Error("similarity search failed", "k", k, "err", err)
		return nil, err
	}

	docs := make([]core.Document, len(results))
	for n, result := range results {
		docs[n] = result.Document.Document
	}
	i.logger.Debug("search finished", "k", k, "hits", len(docs))
	return docs, nil
}

// AddDocuments embeds all contents in one batch and upserts the documents.
func (i *Index) AddDocuments(ctx context.Context, docs []core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for n, doc := range docs {
		texts[n] = doc.Content
	}

	vectors, err := i.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		i.logger.Error("failed to embed documents", "count", len(docs), "err", err)
		return fmt.Errorf("embedding %d documents: %w", len(docs), err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: expected %d vectors, got %d", index.ErrInvalidEmbedding, len(docs), len(vectors))
	}

	stored := make([]*core.StoredDocument, len(docs))
	for n, doc := range docs {
		stored[n] = &core.StoredDocument{
			Document: core.NewDocument(doc.Content, doc.Metadata),
			Vector:   core.NormalizeVector(vectors[n]),
		}
	}

	if _, err := i.repo.UpsertDocuments(ctx, stored...); err != nil {
		i.logger.Error("failed to store documents", "count", len(docs), "err", err)
		return err
	}

	i.logger.Debug("added documents", "count", len(docs))
	return nil
}

// Count returns the number of stored documents.
func (i *Index) Count(ctx context.Context) (int, error) {
	return i.repo.CountDocuments(ctx)
}
