package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/multiquery/ai/mock"
	"github.com/poiesic/multiquery/chunking"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/index"
	"github.com/poiesic/multiquery/index/local"
	"github.com/poiesic/multiquery/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingIndexer keeps every batch it is given. AddFunc, when set, decides
// the outcome of each call.
type recordingIndexer struct {
	mu      sync.Mutex
	batches [][]core.Document
	calls   atomic.Int32
	AddFunc func(call int32, docs []core.Document) error
}

func (r *recordingIndexer) AddDocuments(_ context.Context, docs []core.Document) error {
	call := r.calls.Add(1)
	if r.AddFunc != nil {
		if err := r.AddFunc(call, docs); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, docs)
	return nil
}

func (r *recordingIndexer) contents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		for _, d := range b {
			out = append(out, d.Content)
		}
	}
	sort.Strings(out)
	return out
}

func makeDocs(n int) []core.Document {
	docs := make([]core.Document, n)
	for i := range docs {
		docs[i] = core.Document{Content: fmt.Sprintf("doc %02d", i), Metadata: core.Metadata{"n": i}}
	}
	return docs
}

func newTestPipeline(t *testing.T, indexer index.Indexer, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithRetryDelay(time.Millisecond)}, opts...)
	p, err := NewPipeline(indexer, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.ErrorIs(t, err, ErrIndexerRequired)

	_, err = NewPipeline(&recordingIndexer{}, WithBatchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBatchSize)

	_, err = NewPipeline(&recordingIndexer{}, WithMaxRetries(0))
	assert.Error(t, err)

	p, err := NewPipeline(&recordingIndexer{}, WithWorkers(0), WithLogger(nil))
	require.NoError(t, err)
	p.Release()
}

func TestPipeline_Ingest(t *testing.T) {
	t.Run("batches", func(t *testing.T) {
		indexer := &recordingIndexer{}
		p := newTestPipeline(t, indexer, WithBatchSize(4), WithWorkers(3))

		n, err := p.Ingest(context.Background(), makeDocs(10))
		require.NoError(t, err)
		assert.Equal(t, 10, n)

		sizes := make([]int, 0, len(indexer.batches))
		for _, b := range indexer.batches {
			sizes = append(sizes, len(b))
		}
		assert.ElementsMatch(t, []int{4, 4, 2}, sizes)

		want := make([]string, 10)
		for i := range want {
			want[i] = fmt.Sprintf("doc %02d", i)
		}
		assert.Equal(t, want, indexer.contents())
	})

	t.Run("no documents", func(t *testing.T) {
		p := newTestPipeline(t, &recordingIndexer{})
		n, err := p.Ingest(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoDocuments)
		assert.Zero(t, n)
	})

	t.Run("invalid document stops before indexing", func(t *testing.T) {
		indexer := &recordingIndexer{}
		p := newTestPipeline(t, indexer)

		docs := makeDocs(3)
		docs[1].Content = "   "
		_, err := p.Ingest(context.Background(), docs)
		assert.ErrorIs(t, err, core.ErrEmptyContent)
		assert.Zero(t, indexer.calls.Load())
	})

	t.Run("transient failure is retried", func(t *testing.T) {
		indexer := &recordingIndexer{AddFunc: func(call int32, _ []core.Document) error {
			if call == 1 {
				return errors.New("connection reset")
			}
			return nil
		}}
		p := newTestPipeline(t, indexer, WithBatchSize(10), WithMaxRetries(3))

		n, err := p.Ingest(context.Background(), makeDocs(5))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.EqualValues(t, 2, indexer.calls.Load())
	})

	t.Run("failed batches are joined", func(t *testing.T) {
		boom := errors.New("index offline")
		indexer := &recordingIndexer{AddFunc: func(_ int32, docs []core.Document) error {
			if docs[0].Content == "doc 00" || docs[0].Content == "doc 04" {
				return boom
			}
			return nil
		}}
		p := newTestPipeline(t, indexer, WithBatchSize(2), WithMaxRetries(2))

		n, err := p.Ingest(context.Background(), makeDocs(6))
		assert.Equal(t, 2, n)
		assert.ErrorIs(t, err, boom)

		var batchErr *BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, 2, batchErr.Size)
		assert.EqualValues(t, 5, indexer.calls.Load(), "two failing batches tried twice, one good batch once")
	})

	t.Run("embedding errors are not retried", func(t *testing.T) {
		indexer := &recordingIndexer{AddFunc: func(int32, []core.Document) error {
			return fmt.Errorf("%w: expected 2 vectors, got 1", index.ErrInvalidEmbedding)
		}}
		p := newTestPipeline(t, indexer, WithMaxRetries(5))

		_, err := p.Ingest(context.Background(), makeDocs(2))
		assert.ErrorIs(t, err, index.ErrInvalidEmbedding)
		assert.EqualValues(t, 1, indexer.calls.Load())
	})
}

func TestPipeline_IngestWithChunker(t *testing.T) {
	cfg := chunking.DefaultConfig()
	cfg.ChunkSize = 20
	cfg.ChunkOverlap = 0
	chunker, err := chunking.NewChunker(cfg)
	require.NoError(t, err)

	indexer := &recordingIndexer{}
	p := newTestPipeline(t, indexer, WithChunker(chunker))

	n, err := p.Ingest(context.Background(), []core.Document{
		{Content: "first paragraph\n\nsecond paragraph", Metadata: core.Metadata{"source": "a.txt"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"first paragraph", "second paragraph"}, indexer.contents())
	for _, b := range indexer.batches {
		for _, d := range b {
			assert.Equal(t, "a.txt", d.Metadata["source"])
		}
	}
}

func TestPipeline_IngestIntoLocalIndex(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	idx, err := local.New(repo, mock.NewMockEmbedder())
	require.NoError(t, err)

	p := newTestPipeline(t, idx, WithBatchSize(3))
	docs := makeDocs(7)
	n, err := p.Ingest(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	hits, err := idx.Search(context.Background(), "doc 03", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc 03", hits[0].Content)
}
