package reembed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/multiquery/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadAll(t *testing.T, db *testDB, ids []core.ID) []*core.StoredDocument {
	t.Helper()
	docs, err := db.docs.GetDocuments(context.Background(), ids...)
	require.NoError(t, err)
	return docs
}

func TestBatchProcessor_Process(t *testing.T) {
	db := setupTestDB(t)
	ids := db.seed(t, 4)
	docs := loadAll(t, db, ids)

	bp := NewBatchProcessor(db.docs, scaledEmbedder(), 3, time.Millisecond)
	require.NoError(t, bp.Process(context.Background(), docs))

	for _, doc := range loadAll(t, db, ids) {
		require.Len(t, doc.Vector, 3)
		assert.InDelta(t, 1.0/3, doc.Vector[0], 1e-6)
		assert.InDelta(t, 2.0/3, doc.Vector[1], 1e-6)
		assert.InDelta(t, 2.0/3, doc.Vector[2], 1e-6)
		assert.NotEmpty(t, doc.Document.Content, "content is untouched")
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	db := setupTestDB(t)
	embedder := scaledEmbedder()
	bp := NewBatchProcessor(db.docs, embedder, 3, time.Millisecond)

	require.NoError(t, bp.Process(context.Background(), nil))
	assert.Zero(t, embedder.CallCount())
}

func TestBatchProcessor_Retry(t *testing.T) {
	db := setupTestDB(t)
	docs := loadAll(t, db, db.seed(t, 2))

	embedder := scaledEmbedder()
	inner := embedder.EmbedTextsFunc
	calls := 0
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("rate limited")
		}
		return inner(ctx, texts)
	}

	bp := NewBatchProcessor(db.docs, embedder, 3, time.Millisecond)
	require.NoError(t, bp.Process(context.Background(), docs))
	assert.Equal(t, 3, calls)
}

func TestBatchProcessor_EmbeddingError(t *testing.T) {
	db := setupTestDB(t)
	ids := db.seed(t, 2)
	docs := loadAll(t, db, ids)

	boom := errors.New("model offline")
	embedder := scaledEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, boom
	}

	bp := NewBatchProcessor(db.docs, embedder, 2, time.Millisecond)
	err := bp.Process(context.Background(), docs)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, embedder.CallCount())

	for _, doc := range loadAll(t, db, ids) {
		assert.Empty(t, doc.Vector, "nothing is written on failure")
	}
}

func TestBatchProcessor_MismatchIsNotRetried(t *testing.T) {
	db := setupTestDB(t)
	docs := loadAll(t, db, db.seed(t, 3))

	embedder := scaledEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	bp := NewBatchProcessor(db.docs, embedder, 5, time.Millisecond)
	err := bp.Process(context.Background(), docs)
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	db := setupTestDB(t)
	docs := loadAll(t, db, db.seed(t, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	embedder := scaledEmbedder()
	bp := NewBatchProcessor(db.docs, embedder, 3, time.Millisecond)
	err := bp.Process(ctx, docs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, embedder.CallCount())
}
