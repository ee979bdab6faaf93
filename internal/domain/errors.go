package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is matched by every *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidTopK is returned for negative topK values.
	ErrInvalidTopK = errors.New("topK must be zero or greater")
)

// DimensionMismatchError reports a vector whose length differs from the
// store's fixed dimensionality. It indicates a configuration error and is
// never retried.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrDimensionMismatch, e.Expected, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// EmbeddingServiceError wraps a failure of the embedding provider.
type EmbeddingServiceError struct {
	Provider string
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service %s: %v", e.Provider, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// GenerationServiceError wraps a failure of the answer-generation provider.
type GenerationServiceError struct {
	Provider string
	Err      error
}

func (e *GenerationServiceError) Error() string {
	return fmt.Sprintf("generation service %s: %v", e.Provider, e.Err)
}

func (e *GenerationServiceError) Unwrap() error { return e.Err }
