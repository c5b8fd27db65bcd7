// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import (
	"context"

	"github.com/poiesic/multiquery/core"
)

// SimilaritySearchClient returns the documents most similar to a query.
// Implementations must be safe for concurrent read-only use.
type SimilaritySearchClient interface {
	// Search returns up to k documents ordered from most to least similar.
	Search(ctx context.Context, query string, k int) ([]core.Document, error)
}

// Indexer writes documents into an index.
type Indexer interface {
	// AddDocuments embeds and stores docs.
	AddDocuments(ctx context.Context, docs []core.Document) error
}

// Store is an index that can be both searched and written.
type Store interface {
	SimilaritySearchClient
	Indexer
}

// SearchFunc adapts an ordinary function to SimilaritySearchClient.
type SearchFunc func(ctx context.Context, query string, k int) ([]core.Document, error)

// Search calls f(ctx, query, k).
func (f SearchFunc) Search(ctx context.Context, query string, k int) ([]core.Document, error) {
	return f(ctx, query, k)
}
