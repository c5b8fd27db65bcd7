package reembed

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/poiesic/multiquery/ai/mock"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/storage/badger"
	"github.com/stretchr/testify/require"
)

type testDB struct {
	docs        *badger.DocumentRepository
	checkpoints *badger.CheckpointRepository
}

func setupTestDB(t *testing.T) *testDB {
	t.Helper()
	backend, err := badger.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	docs, err := badger.NewDocumentRepository(backend)
	require.NoError(t, err)

	return &testDB{docs: docs, checkpoints: badger.NewCheckpointRepository(backend)}
}

// seed stores n documents without vectors and returns their IDs in ascending order.
func (db *testDB) seed(t *testing.T, n int) []core.ID {
	t.Helper()
	docs := make([]*core.StoredDocument, n)
	for i := range docs {
		docs[i] = &core.StoredDocument{Document: core.Document{Content: fmt.Sprintf("document %d", i)}}
	}
	stored, err := db.docs.UpsertDocuments(context.Background(), docs...)
	require.NoError(t, err)

	ids := make([]core.ID, len(stored))
	for i, doc := range stored {
		ids[i] = doc.Id
	}
	slices.Sort(ids)
	return ids
}

// scaledEmbedder returns (1, 2, 2) for every text, a vector of magnitude 3.
func scaledEmbedder() *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 2, 2}
		}
		return out, nil
	}
	return m
}
