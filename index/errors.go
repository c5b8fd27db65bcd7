package index

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedIndex is matched by every UnsupportedIndexError.
	ErrUnsupportedIndex = errors.New("index does not support similarity search")

	// ErrInvalidVectorStore indicates a vector store could not be built from its configuration.
	ErrInvalidVectorStore = errors.New("invalid vector store")

	// ErrInvalidEmbedding indicates a vector store was configured without a usable embedder.
	ErrInvalidEmbedding = errors.New("invalid embedding")
)

// UnsupportedIndexError reports a value that cannot serve similarity searches.
type UnsupportedIndexError struct {
	// Type is the Go type of the rejected value.
	Type string
}

// NewUnsupportedIndexError describes v as an unsupported index.
func NewUnsupportedIndexError(v any) *UnsupportedIndexError {
	return &UnsupportedIndexError{Type: fmt.Sprintf("%T", v)}
}

func (e *UnsupportedIndexError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedIndex, e.Type)
}

// Is reports whether target is ErrUnsupportedIndex.
func (e *UnsupportedIndexError) Is(target error) bool {
	return target == ErrUnsupportedIndex
}
