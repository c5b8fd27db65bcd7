package chunking

import "errors"

var (
	// ErrNoInput is returned when there is nothing to split.
	ErrNoInput = errors.New("no input documents")

	// ErrEmptyRecords is returned by SplitRecords for an empty record set.
	ErrEmptyRecords = errors.New("record set is empty")

	// ErrMissingText indicates a record without a string text column.
	ErrMissingText = errors.New("record has no text column")

	// ErrSplit wraps failures reported by the underlying splitter.
	ErrSplit = errors.New("error splitting text")

	// ErrInvalidConfig indicates unusable chunk sizes.
	ErrInvalidConfig = errors.New("invalid chunking config")
)
