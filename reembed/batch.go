package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/multiquery/ai"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/storage"
)

// BatchProcessor embeds one batch of documents and stores the new vectors.
type BatchProcessor struct {
	repo           storage.DocumentRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a processor that tries each embedding call up to
// maxRetries times.
func NewBatchProcessor(repo storage.DocumentRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process replaces the vectors of docs. On success every document carries
// its new unit-length vector.
func (bp *BatchProcessor) Process(ctx context.Context, docs []*core.StoredDocument) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Document.Content
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		vecs, err := bp.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return Permanent(fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(texts), len(vecs)))
		}
		embeddings = vecs
		return nil
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	for i, doc := range docs {
		doc.Vector = core.NormalizeVector(embeddings[i])
	}

	if err := bp.repo.UpdateVectors(ctx, docs...); err != nil {
		return fmt.Errorf("failed to update vectors: %w", err)
	}
	return nil
}
