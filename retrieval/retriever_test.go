package retrieval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/multiquery/ai/mock"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/expand"
	"github.com/poiesic/multiquery/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex answers from a fixed table and records every query it sees.
type fakeIndex struct {
	mu      sync.Mutex
	results map[string][]core.Document
	queries []string
	ks      []int
}

func newFakeIndex(results map[string][]core.Document) *fakeIndex {
	return &fakeIndex{results: results}
}

func (f *fakeIndex) Search(_ context.Context, query string, k int) ([]core.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.ks = append(f.ks, k)
	return f.results[query], nil
}

func (f *fakeIndex) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.queries)
}

func doc(content string, md core.Metadata) core.Document {
	return core.Document{Content: content, Metadata: md}
}

func newTestRetriever(t *testing.T, gen *mock.MockGenerator, opts ...Option) *Retriever {
	t.Helper()
	r, err := NewRetriever(gen, opts...)
	require.NoError(t, err)
	t.Cleanup(r.Release)
	return r
}

func TestNewRetriever(t *testing.T) {
	_, err := NewRetriever(nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = NewRetriever(mock.NewMockGenerator(), WithConcurrency(0))
	assert.ErrorIs(t, err, ErrInvalidConcurrency)

	r, err := NewRetriever(mock.NewMockGenerator(), WithLogger(nil), WithMonitor(nil))
	require.NoError(t, err)
	r.Release()
}

func TestRetrieve_VectorDatabaseScenario(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("vector DB definition\ndefinition of vector store")
	idx := newFakeIndex(map[string][]core.Document{
		"What is a vector database?": {
			doc("A vector database stores embeddings.", core.Metadata{"source": "a"}),
			doc("Vector databases support similarity search.", core.Metadata{"source": "b"}),
		},
		"vector DB definition": {
			doc("Vector databases support similarity search.", core.Metadata{"source": "b"}),
			doc("A vector DB indexes high-dimensional data.", core.Metadata{"source": "c"}),
		},
		"definition of vector store": {
			doc("A vector database stores embeddings.", core.Metadata{"source": "a"}),
		},
	})

	r := newTestRetriever(t, gen)
	cfg := core.NewRetrievalConfig(core.WithNumberOfQueries(3))

	docs, err := r.Retrieve(context.Background(), "What is a vector database?", idx, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.CallCount())
	assert.ElementsMatch(t, []string{
		"What is a vector database?",
		"vector DB definition",
		"definition of vector store",
	}, idx.Queries())

	assert.Equal(t, []core.Document{
		doc("A vector database stores embeddings.", core.Metadata{"source": "a"}),
		doc("Vector databases support similarity search.", core.Metadata{"source": "b"}),
		doc("A vector DB indexes high-dimensional data.", core.Metadata{"source": "c"}),
	}, docs)
}

func TestRetrieve_BlankQuery(t *testing.T) {
	for _, query := range []string{"", "   ", "\n\t"} {
		gen := mock.NewMockGenerator()
		idx := newFakeIndex(nil)
		r := newTestRetriever(t, gen)

		docs, err := r.Retrieve(context.Background(), query, idx, core.DefaultRetrievalConfig())
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Empty(t, docs)
		assert.Zero(t, gen.CallCount())
		assert.Empty(t, idx.Queries())
	}
}

func TestRetrieve_UnsupportedIndex(t *testing.T) {
	gen := mock.NewMockGenerator()
	r := newTestRetriever(t, gen)
	ctx := context.Background()
	cfg := core.DefaultRetrievalConfig()

	t.Run("nil interface", func(t *testing.T) {
		_, err := r.Retrieve(ctx, "q", nil, cfg)
		var unsupported *index.UnsupportedIndexError
		require.ErrorAs(t, err, &unsupported)
		assert.ErrorIs(t, err, index.ErrUnsupportedIndex)
	})

	t.Run("typed nil", func(t *testing.T) {
		var idx *fakeIndex
		_, err := r.Retrieve(ctx, "q", idx, cfg)
		assert.ErrorIs(t, err, index.ErrUnsupportedIndex)
	})

	t.Run("arbitrary value", func(t *testing.T) {
		_, err := r.RetrieveFrom(ctx, "q", "not an index", cfg)
		var unsupported *index.UnsupportedIndexError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "string", unsupported.Type)
	})

	assert.Zero(t, gen.CallCount(), "generation must not run for an unusable index")
}

func TestRetrieve_OriginalPlacementAndExclusion(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("first\nsecond")
	ctx := context.Background()

	var mu sync.Mutex
	var order []string
	idx := index.SearchFunc(func(_ context.Context, query string, _ int) ([]core.Document, error) {
		mu.Lock()
		order = append(order, query)
		mu.Unlock()
		return []core.Document{doc("from "+query, nil)}, nil
	})

	r := newTestRetriever(t, gen)

	t.Run("original last", func(t *testing.T) {
		cfg := core.NewRetrievalConfig(core.WithNumberOfQueries(2), core.WithOriginalPlacement(core.PlaceOriginalLast))
		docs, err := r.Retrieve(ctx, "orig", idx, cfg)
		require.NoError(t, err)
		assert.Equal(t, []core.Document{doc("from first", nil), doc("from second", nil), doc("from orig", nil)}, docs)
	})

	t.Run("original excluded", func(t *testing.T) {
		mu.Lock()
		order = nil
		mu.Unlock()

		cfg := core.NewRetrievalConfig(core.WithNumberOfQueries(2), core.WithIncludeOriginal(false))
		docs, err := r.Retrieve(ctx, "orig", idx, cfg)
		require.NoError(t, err)
		assert.Equal(t, []core.Document{doc("from first", nil), doc("from second", nil)}, docs)
		assert.NotContains(t, order, "orig")
	})
}

func TestRetrieve_NoQueriesToSearch(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("   \n\n")
	idx := newFakeIndex(nil)
	r := newTestRetriever(t, gen)

	cfg := core.NewRetrievalConfig(core.WithIncludeOriginal(false))
	docs, err := r.Retrieve(context.Background(), "q", idx, cfg)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
	assert.Empty(t, idx.Queries())
}

func TestRetrieve_InvalidConfig(t *testing.T) {
	gen := mock.NewMockGenerator()
	r := newTestRetriever(t, gen)

	cfg := core.NewRetrievalConfig(core.WithNumberOfResultsPerQuery(-1))
	_, err := r.Retrieve(context.Background(), "q", newFakeIndex(nil), cfg)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	assert.Zero(t, gen.CallCount())
}

func TestRetrieve_GenerationError(t *testing.T) {
	boom := errors.New("model unavailable")
	idx := newFakeIndex(nil)
	r := newTestRetriever(t, mock.NewMockGeneratorWithError(boom))

	docs, err := r.Retrieve(context.Background(), "q", idx, core.DefaultRetrievalConfig())
	assert.Nil(t, docs)
	assert.ErrorIs(t, err, expand.ErrGeneration)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, idx.Queries())
}

func TestRetrieve_FailuresLoggedOnce(t *testing.T) {
	newLoggedRetriever := func(t *testing.T, gen *mock.MockGenerator) (*Retriever, *bytes.Buffer) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
		return newTestRetriever(t, gen, WithLogger(logger)), &buf
	}

	t.Run("generation failure", func(t *testing.T) {
		r, buf := newLoggedRetriever(t, mock.NewMockGeneratorWithError(errors.New("model unavailable")))

		_, err := r.Retrieve(context.Background(), "q", newFakeIndex(nil), core.DefaultRetrievalConfig())
		require.Error(t, err)
		assert.Equal(t, 1, strings.Count(buf.String(), "level=ERROR"), buf.String())
	})

	t.Run("search failure", func(t *testing.T) {
		r, buf := newLoggedRetriever(t, mock.NewMockGeneratorWithReply("a"))
		failing := index.SearchFunc(func(context.Context, string, int) ([]core.Document, error) {
			return nil, errors.New("index offline")
		})

		_, err := r.Retrieve(context.Background(), "q", failing, core.DefaultRetrievalConfig())
		require.ErrorIs(t, err, ErrSearch)
		assert.NotContains(t, buf.String(), "level=ERROR")
	})
}

func TestRetrieve_SearchFailure(t *testing.T) {
	boom := errors.New("index offline")
	gen := mock.NewMockGeneratorWithReply("second\nthird")

	idx := index.SearchFunc(func(_ context.Context, query string, _ int) ([]core.Document, error) {
		if query == "second" {
			return nil, boom
		}
		return []core.Document{doc(query, nil)}, nil
	})

	r := newTestRetriever(t, gen)
	cfg := core.NewRetrievalConfig(core.WithNumberOfQueries(2))

	docs, err := r.Retrieve(context.Background(), "first", idx, cfg)
	assert.Nil(t, docs)
	assert.ErrorIs(t, err, ErrSearch)
	assert.ErrorIs(t, err, boom)

	var searchErr *SearchError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, 1, searchErr.Index)
	assert.Equal(t, "second", searchErr.Query)
}

func TestRetrieve_FailureCancelsInFlightSearches(t *testing.T) {
	boom := errors.New("index offline")
	gen := mock.NewMockGeneratorWithReply("slow one\nslow two\nfails")

	var canceled atomic.Int32
	idx := index.SearchFunc(func(ctx context.Context, query string, _ int) ([]core.Document, error) {
		if query == "fails" {
			return nil, boom
		}
		select {
		case <-ctx.Done():
			canceled.Add(1)
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return []core.Document{doc(query, nil)}, nil
		}
	})

	r := newTestRetriever(t, gen)
	cfg := core.NewRetrievalConfig(core.WithIncludeOriginal(false))

	start := time.Now()
	_, err := r.Retrieve(context.Background(), "q", idx, cfg)
	assert.Less(t, time.Since(start), 4*time.Second)

	var searchErr *SearchError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "fails", searchErr.Query)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 2, canceled.Load())
}

func TestRetrieve_ParentCancellation(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("a\nb\nc")
	started := make(chan struct{}, 4)

	idx := index.SearchFunc(func(ctx context.Context, query string, _ int) ([]core.Document, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	r := newTestRetriever(t, gen)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	docs, err := r.Retrieve(ctx, "q", idx, core.DefaultRetrievalConfig())
	assert.Nil(t, docs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetrieve_CanceledBeforeSearch(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("a\nb")
	idx := newFakeIndex(nil)
	r := newTestRetriever(t, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, err := r.Retrieve(ctx, "q", idx, core.DefaultRetrievalConfig())
	assert.Nil(t, docs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, idx.Queries())
}

func TestRetrieve_MergeIsIndependentOfCompletionOrder(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("q1\nq2\nq3")

	// Overlapping result lists, so dedup order matters. The last "c" has the
	// same canonical metadata as the one from q2 and collapses into it.
	table := map[string][]core.Document{
		"q0": {doc("a", nil), doc("b", nil)},
		"q1": {doc("b", nil), doc("c", nil)},
		"q2": {doc("c", core.Metadata{"v": 1}), doc("a", nil)},
		"q3": {doc("d", nil), doc("c", core.Metadata{"v": "1"})},
	}
	want := []core.Document{doc("a", nil), doc("b", nil), doc("c", nil), doc("c", core.Metadata{"v": 1}), doc("d", nil)}

	idx := index.SearchFunc(func(ctx context.Context, query string, _ int) ([]core.Document, error) {
		time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
		return table[query], nil
	})

	r := newTestRetriever(t, gen)
	for i := range 20 {
		docs, err := r.Retrieve(context.Background(), "q0", idx, core.DefaultRetrievalConfig())
		require.NoError(t, err)
		require.Equal(t, want, docs, "run %d", i)
	}
}

func TestRetrieve_CountBound(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("q1\nq2\nq3\nq4\nq5")

	idx := newFakeIndex(nil)
	idx.results = map[string][]core.Document{}
	for _, q := range []string{"q0", "q1", "q2", "q3"} {
		for n := range 10 {
			idx.results[q] = append(idx.results[q], doc(fmt.Sprintf("%s-%d", q, n), nil))
		}
	}

	r := newTestRetriever(t, gen)
	cfg := core.NewRetrievalConfig(core.WithNumberOfQueries(3), core.WithNumberOfResultsPerQuery(4))

	docs, err := r.Retrieve(context.Background(), "q0", idx, cfg)
	require.NoError(t, err)
	assert.Len(t, docs, 16)
	assert.Len(t, idx.Queries(), 4)
	for _, k := range idx.ks {
		assert.Equal(t, 4, k)
	}
}

func TestRetrieve_ConcurrencyLimit(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("a\nb\nc\nd\ne")

	var inFlight, peak atomic.Int32
	idx := index.SearchFunc(func(context.Context, string, int) ([]core.Document, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	})

	r := newTestRetriever(t, gen, WithConcurrency(2))
	cfg := core.NewRetrievalConfig(core.WithNumberOfQueries(5))

	_, err := r.Retrieve(context.Background(), "q", idx, cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRetrieveRecords(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("alt")
	idx := newFakeIndex(map[string][]core.Document{
		"q":   {doc("hello", core.Metadata{"page": 2, "source": "x.md"})},
		"alt": {doc("hello", core.Metadata{"page": 2, "source": "x.md"})},
	})

	r := newTestRetriever(t, gen)
	records, err := r.RetrieveRecords(context.Background(), "q", idx, core.NewRetrievalConfig(core.WithNumberOfQueries(1)))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, core.Record{"text": "hello", "page": 2, "source": "x.md"}, records[0])
}

// recordingMonitor keeps every callback for assertions.
type recordingMonitor struct {
	mu       sync.Mutex
	started  string
	expanded []string
	searched []int
	finished []core.Document
	failed   error
}

func (m *recordingMonitor) Start(query string) { m.started = query }

func (m *recordingMonitor) Expanded(queries []string) { m.expanded = queries }

func (m *recordingMonitor) Searched(index int, _ string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searched = append(m.searched, index)
}

func (m *recordingMonitor) Finished(results []core.Document, _ time.Duration) { m.finished = results }

func (m *recordingMonitor) Failed(err error) { m.failed = err }

func TestRetrieve_Monitor(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		monitor := &recordingMonitor{}
		gen := mock.NewMockGeneratorWithReply("alt")
		idx := newFakeIndex(map[string][]core.Document{"q": {doc("x", nil)}})
		r := newTestRetriever(t, gen, WithMonitor(monitor))

		_, err := r.Retrieve(context.Background(), "q", idx, core.NewRetrievalConfig(core.WithNumberOfQueries(1)))
		require.NoError(t, err)

		assert.Equal(t, "q", monitor.started)
		assert.Equal(t, []string{"q", "alt"}, monitor.expanded)
		assert.ElementsMatch(t, []int{0, 1}, monitor.searched)
		assert.Equal(t, []core.Document{doc("x", nil)}, monitor.finished)
		assert.NoError(t, monitor.failed)
	})

	t.Run("failure", func(t *testing.T) {
		monitor := &recordingMonitor{}
		boom := errors.New("boom")
		r := newTestRetriever(t, mock.NewMockGeneratorWithError(boom), WithMonitor(monitor))

		_, err := r.Retrieve(context.Background(), "q", newFakeIndex(nil), core.DefaultRetrievalConfig())
		require.Error(t, err)
		assert.ErrorIs(t, monitor.failed, boom)
		assert.Nil(t, monitor.finished)
	})
}
