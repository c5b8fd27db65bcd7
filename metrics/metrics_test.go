package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/multiquery/ai/mock"
	"github.com/poiesic/multiquery/core"
	"github.com/poiesic/multiquery/expand"
	"github.com/poiesic/multiquery/index"
	"github.com/poiesic/multiquery/retrieval"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg), "registering twice is allowed")

	RetrievalsTotal.WithLabelValues("register", StatusSuccess).Inc()
	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "multiquery_retrievals_total")
}

func TestMonitor_WithRetriever(t *testing.T) {
	gen := mock.NewMockGeneratorWithReply("alt one\nalt two")
	idx := index.SearchFunc(func(_ context.Context, query string, _ int) ([]core.Document, error) {
		return []core.Document{{Content: "shared"}, {Content: query}}, nil
	})

	r, err := retrieval.NewRetriever(gen, retrieval.WithMonitor(NewMonitor("monitor-ok")))
	require.NoError(t, err)
	defer r.Release()

	docs, err := r.Retrieve(context.Background(), "q", idx, core.NewRetrievalConfig(core.WithNumberOfQueries(2)))
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.InDelta(t, 1, testutil.ToFloat64(RetrievalsTotal.WithLabelValues("monitor-ok", StatusSuccess)), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(SearchHitsTotal.WithLabelValues("monitor-ok")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(ResultsTotal.WithLabelValues("monitor-ok")), 0)
	assert.Positive(t, testutil.CollectAndCount(SearchDuration))
	assert.Positive(t, testutil.CollectAndCount(QueriesPerRetrieval))
}

func TestMonitor_Failed(t *testing.T) {
	m := NewMonitor("monitor-failed")
	m.Failed(&expand.GenerationError{Query: "q", Err: errors.New("down")})
	m.Failed(&retrieval.SearchError{Index: 1, Query: "q", Err: errors.New("offline")})

	assert.InDelta(t, 1, testutil.ToFloat64(RetrievalsTotal.WithLabelValues("monitor-failed", StatusGeneration)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(RetrievalsTotal.WithLabelValues("monitor-failed", StatusSearch)), 0)
}

func TestNewMonitor_DefaultLabel(t *testing.T) {
	m := NewMonitor("")
	m.Finished(nil, time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(RetrievalsTotal.WithLabelValues("default", StatusSuccess)), 0)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, StatusSuccess},
		{context.Canceled, StatusCanceled},
		{fmt.Errorf("retrieval interrupted: %w", context.DeadlineExceeded), StatusCanceled},
		{&retrieval.SearchError{Err: context.Canceled}, StatusCanceled},
		{&expand.GenerationError{Err: errors.New("x")}, StatusGeneration},
		{&retrieval.SearchError{Err: errors.New("x")}, StatusSearch},
		{errors.New("other"), StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}
