package retrieval

import (
	"errors"
	"fmt"
)

var (
	// ErrSearch is matched by every SearchError.
	ErrSearch = errors.New("similarity search failed")

	// ErrGeneratorRequired is returned when a Retriever is built without a generator.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrInvalidConcurrency is returned for a non-positive worker count.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
)

// SearchError reports the first similarity search that failed.
type SearchError struct {
	// Index is the position of the query in the searched list.
	Index int
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s for query %d (%q): %v", ErrSearch, e.Index, e.Query, e.Err)
}

// Unwrap returns the error reported by the index.
func (e *SearchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSearch.
func (e *SearchError) Is(target error) bool {
	return target == ErrSearch
}
