package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/multiquery/ai/mock"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQdrant records upserts and answers searches with fixed points.
type fakeQdrant struct {
	mu      sync.Mutex
	upserts []map[string]any
	limits  []int
	apiKeys []string
	delay   time.Duration
	results []map[string]any
}

func (f *fakeQdrant) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /prefix/collections/docs/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Batch struct {
				Payloads []map[string]any `json:"payloads"`
				Vectors  [][]float32      `json:"vectors"`
			} `json:"batch"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		f.upserts = append(f.upserts, body.Batch.Payloads...)
		f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"status": "completed"}})
	})
	mux.HandleFunc("POST /prefix/collections/docs/points/search", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Limit int `json:"limit"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		f.limits = append(f.limits, body.Limit)
		delay := f.delay
		results := f.results
		f.mu.Unlock()

		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": results})
	})
	return mux
}

func newTestStore(t *testing.T, fake *fakeQdrant, timeout time.Duration) *Store {
	t.Helper()

	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.CollectionName = "docs"
	cfg.URL = server.URL + "/prefix"
	cfg.APIKey = "secret"
	cfg.Timeout = timeout

	store, err := New(cfg, mock.NewMockEmbedder())
	require.NoError(t, err)
	return store
}

func TestNew(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CollectionName = "docs"

	t.Run("nil embedder", func(t *testing.T) {
		_, err := New(cfg, nil)
		assert.ErrorIs(t, err, index.ErrInvalidEmbedding)
		assert.NotErrorIs(t, err, index.ErrInvalidVectorStore)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(Config{}, mock.NewMockEmbedder())
		assert.ErrorIs(t, err, index.ErrInvalidVectorStore)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		store, err := New(Config{CollectionName: "docs"}, mock.NewMockEmbedder())
		require.NoError(t, err)
		assert.Equal(t, 6333, store.Config().Port)
	})
}

func TestStore_AddDocuments(t *testing.T) {
	fake := &fakeQdrant{}
	store := newTestStore(t, fake, 0)

	err := store.AddDocuments(context.Background(), []core.Document{
		{Content: "alpha", Metadata: core.Metadata{"source": "a.txt"}},
		{Content: "beta"},
	})
	require.NoError(t, err)

	require.Len(t, fake.upserts, 2)
	assert.Equal(t, "alpha", fake.upserts[0]["page_content"])
	assert.Equal(t, map[string]any{"source": "a.txt"}, fake.upserts[0]["metadata"])
	assert.Equal(t, map[string]any{}, fake.upserts[1]["metadata"])
	assert.Equal(t, []string{"secret"}, fake.apiKeys)
}

func TestStore_Search(t *testing.T) {
	fake := &fakeQdrant{results: []map[string]any{
		{"score": 0.9, "payload": map[string]any{"page_content": "alpha", "metadata": map[string]any{"page": 1}}},
		{"score": 0.8, "payload": map[string]any{"page_content": "beta", "metadata": map[string]any{}}},
	}}
	store := newTestStore(t, fake, 0)

	docs, err := store.Search(context.Background(), "greek letters", 2)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "alpha", docs[0].Content)
	assert.Equal(t, float64(1), docs[0].Metadata["page"])
	assert.Equal(t, "beta", docs[1].Content)
	assert.Empty(t, docs[1].Metadata)
	assert.Equal(t, []int{2}, fake.limits)
}

func TestStore_SearchTimeout(t *testing.T) {
	fake := &fakeQdrant{delay: time.Second}
	store := newTestStore(t, fake, 20*time.Millisecond)

	_, err := store.Search(context.Background(), "slow", 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
