package expand

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneration is the sentinel matched by every GenerationError.
	ErrGeneration = errors.New("query generation failed")

	// ErrInvalidTemplate indicates the prompt template could not be rendered.
	ErrInvalidTemplate = errors.New("invalid prompt template")

	// ErrNilGenerator indicates an Expander was created without a generator.
	ErrNilGenerator = errors.New("generator is required")
)

// GenerationError reports a failed call to the text generation model.
type GenerationError struct {
	Query string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s for %q: %v", ErrGeneration, e.Query, e.Err)
}

// Unwrap returns the underlying model error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrGeneration.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}
