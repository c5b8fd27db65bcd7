package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/multiquery/core"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// VectorStoreIndex adapts a langchaingo vector store to Store.
type VectorStoreIndex struct {
	store       vectorstores.VectorStore
	metadataKey string
	options     []vectorstores.Option
	logger      *slog.Logger
}

// VectorStoreOption configures a VectorStoreIndex.
type VectorStoreOption func(*VectorStoreIndex)

// WithMetadataKey nests document metadata under key when writing and reads it
// back from the same key. An empty key stores metadata flat.
func WithMetadataKey(key string) VectorStoreOption {
	return func(v *VectorStoreIndex) {
		v.metadataKey = key
	}
}

// WithSearchOptions passes langchaingo options (filters, score threshold) to
// every similarity search.
func WithSearchOptions(opts ...vectorstores.Option) VectorStoreOption {
	return func(v *VectorStoreIndex) {
		v.options = append(v.options, opts...)
	}
}

// WithVectorStoreLogger sets a custom logger.
func WithVectorStoreLogger(logger *slog.Logger) VectorStoreOption {
	return func(v *VectorStoreIndex) {
		if logger != nil {
			v.logger = logger.With("component", "vectorstore-index")
		}
	}
}

// NewVectorStoreIndex wraps store.
func NewVectorStoreIndex(store vectorstores.VectorStore, opts ...VectorStoreOption) *VectorStoreIndex {
	v := &VectorStoreIndex{
		store:  store,
		logger: slog.Default().With("component", "vectorstore-index"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Search runs a similarity search and converts the results.
func (v *VectorStoreIndex) Search(ctx context.Context, query string, k int) ([]core.Document, error) {
	docs, err := v.store.SimilaritySearch(ctx, query, k, v.options...)
	if err != nil {
		v.logger.Error("similarity search failed", "k", k, "err", err)
		return nil, err
	}
	return FromSchemaDocuments(docs, v.metadataKey), nil
}

// AddDocuments converts and writes docs.
func (v *VectorStoreIndex) AddDocuments(ctx context.Context, docs []core.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids, err := v.store.AddDocuments(ctx, ToSchemaDocuments(docs, v.metadataKey))
	if err != nil {
		v.logger.Error("failed to add documents", "count", len(docs), "err", err)
		return fmt.Errorf("adding %d documents: %w", len(docs), err)
	}

	v.logger.Debug("added documents", "count", len(ids))
	return nil
}

// ToSchemaDocuments converts documents for langchaingo, nesting metadata
// under metadataKey when it is not empty.
func ToSchemaDocuments(docs []core.Document, metadataKey string) []schema.Document {
	out := make([]schema.Document, len(docs))
	for i, doc := range docs {
		md := make(map[string]any, len(doc.Metadata))
		for k, v := range doc.Metadata {
			md[k] = v
		}
		if metadataKey != "" {
			md = map[string]any{metadataKey: md}
		}
		out[i] = schema.Document{PageContent: doc.Content, Metadata: md}
	}
	return out
}

// FromSchemaDocuments converts langchaingo documents. When metadataKey names a
// nested object, that object becomes the metadata; otherwise the flat
// metadata is used. Scores are not carried over.
func FromSchemaDocuments(docs []schema.Document, metadataKey string) []core.Document {
	out := make([]core.Document, len(docs))
	for i, doc := range docs {
		out[i] = core.Document{Content: doc.PageContent, Metadata: unwrapMetadata(doc.Metadata, metadataKey)}
	}
	return out
}

func unwrapMetadata(md map[string]any, key string) core.Metadata {
	if key != "" {
		if nested, ok := md[key].(map[string]any); ok {
			return core.Metadata(nested).Clone()
		}
	}
	if len(md) == 0 {
		return nil
	}
	return core.Metadata(md).Clone()
}
