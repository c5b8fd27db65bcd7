package index

import (
	"context"
	"reflect"

	"github.com/poiesic/multiquery/core"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// Resolve returns a SimilaritySearchClient for v.
//
// v may be a SimilaritySearchClient, a langchaingo vectorstores.VectorStore or
// a langchaingo schema.Retriever. Anything else, including nil and typed nil
// pointers, yields an *UnsupportedIndexError.
func Resolve(v any) (SimilaritySearchClient, error) {
	if isNil(v) {
		return nil, NewUnsupportedIndexError(v)
	}

	switch idx := v.(type) {
	case SimilaritySearchClient:
		return idx, nil
	case vectorstores.VectorStore:
		return NewVectorStoreIndex(idx), nil
	case schema.Retriever:
		return retrieverIndex{retriever: idx}, nil
	default:
		return nil, NewUnsupportedIndexError(v)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// retrieverIndex serves searches from a langchaingo retriever, which decides
// its own result count. Results beyond k are dropped.
type retrieverIndex struct {
	retriever schema.Retriever
}

func (r retrieverIndex) Search(ctx context.Context, query string, k int) ([]core.Document, error) {
	docs, err := r.retriever.GetRelevantDocuments(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(docs) > k {
		docs = docs[:k]
	}
	return FromSchemaDocuments(docs, ""), nil
}
