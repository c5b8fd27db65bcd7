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


package core

import "fmt"

const (
	// DefaultNumberOfQueries is the number of alternative queries requested from the model.
	DefaultNumberOfQueries = 3
	// DefaultNumberOfResultsPerQuery is the k used for every similarity search.
	DefaultNumberOfResultsPerQuery = 4
)

// OriginalPlacement controls where the original query is searched relative
// to the derived queries when IncludeOriginal is set.
type OriginalPlacement int

const (
	// PlaceOriginalFirst searches the original query before the derived ones.
	PlaceOriginalFirst OriginalPlacement = iota
	// PlaceOriginalLast searches the original query after the derived ones.
	PlaceOriginalLast
)

// String returns the placement name used in configuration files.
func (p OriginalPlacement) String() string {
	switch p {
	case PlaceOriginalFirst:
		return "first"
	case PlaceOriginalLast:
		return "last"
	default:
		return fmt.Sprintf("OriginalPlacement(%d)", int(p))
	}
}

// ParseOriginalPlacement parses "first" or "last". An empty string is "first".
func ParseOriginalPlacement(s string) (OriginalPlacement, error) {
	switch s {
	case "", "first":
		return PlaceOriginalFirst, nil
	case "last":
		return PlaceOriginalLast, nil
	default:
		return PlaceOriginalFirst, fmt.Errorf("%w: unknown original placement %q", ErrInvalidConfig, s)
	}
}

// RetrievalConfig holds the parameters of one multi-query retrieval.
type RetrievalConfig struct {
	// NumberOfQueries is how many alternative queries to request. Default: 3
	NumberOfQueries int

	// NumberOfResultsPerQuery is the k passed to each similarity search. Default: 4
	NumberOfResultsPerQuery int

	// IncludeOriginal adds the caller's query to the searched set. Default: true
	IncludeOriginal bool

	// OriginalPlacement decides whether the original query is searched first or last.
	OriginalPlacement OriginalPlacement

	// PromptTemplate is the instruction sent to the model. It uses {question}
	// and, optionally, {n_queries}. An empty template selects the built-in prompt.
	PromptTemplate string
}

// RetrievalOption is a functional option for configuring a RetrievalConfig.
type RetrievalOption func(*RetrievalConfig)

// WithNumberOfQueries sets the number of alternative queries.
func WithNumberOfQueries(n int) RetrievalOption {
	return func(c *RetrievalConfig) {
		c.NumberOfQueries = n
	}
}

// WithNumberOfResultsPerQuery sets k for each search.
func WithNumberOfResultsPerQuery(k int) RetrievalOption {
	return func(c *RetrievalConfig) {
		c.NumberOfResultsPerQuery = k
	}
}

// WithIncludeOriginal toggles searching the original query.
func WithIncludeOriginal(include bool) RetrievalOption {
	return func(c *RetrievalConfig) {
		c.IncludeOriginal = include
	}
}

// WithOriginalPlacement sets where the original query is searched.
func WithOriginalPlacement(p OriginalPlacement) RetrievalOption {
	return func(c *RetrievalConfig) {
		c.OriginalPlacement = p
	}
}

// WithPromptTemplate sets the query expansion prompt.
func WithPromptTemplate(template string) RetrievalOption {
	return func(c *RetrievalConfig) {
		c.PromptTemplate = template
	}
}

// DefaultRetrievalConfig returns the default retrieval parameters.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		NumberOfQueries:         DefaultNumberOfQueries,
		NumberOfResultsPerQuery: DefaultNumberOfResultsPerQuery,
		IncludeOriginal:         true,
		OriginalPlacement:       PlaceOriginalFirst,
	}
}

// NewRetrievalConfig creates a RetrievalConfig with the default values and
// applies the provided options.
func NewRetrievalConfig(opts ...RetrievalOption) RetrievalConfig {
	cfg := DefaultRetrievalConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Normalize replaces unset counts with their defaults.
func (c *RetrievalConfig) Normalize() {
	if c.NumberOfQueries == 0 {
		c.NumberOfQueries = DefaultNumberOfQueries
	}
	if c.NumberOfResultsPerQuery == 0 {
		c.NumberOfResultsPerQuery = DefaultNumberOfResultsPerQuery
	}
}

// Validate checks that the configuration is usable.
func (c RetrievalConfig) Validate() error {
	if c.NumberOfQueries < 1 {
		return fmt.Errorf("%w: NumberOfQueries must be at least 1, got %d", ErrInvalidConfig, c.NumberOfQueries)
	}
	if c.NumberOfResultsPerQuery < 1 {
		return fmt.Errorf("%w: NumberOfResultsPerQuery must be at least 1, got %d", ErrInvalidConfig, c.NumberOfResultsPerQuery)
	}
	if c.OriginalPlacement != PlaceOriginalFirst && c.OriginalPlacement != PlaceOriginalLast {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.OriginalPlacement)
	}
	return nil
}
