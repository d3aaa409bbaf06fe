package repository

import (
	"alcyxob/exercise-curator/internal/domain" // Import our defined domain models
	"context"
	"fmt"
)

// Error constants for repository layer
var (
	ErrMalformedDataset = RepositoryError("malformed dataset")
	ErrWriteFailed      = RepositoryError("dataset write failed")
	ErrCollisions       = RepositoryError("dataset has duplicate ids")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ParseError reports persisted content that is not a well-formed sequence of
// exercise objects. Line and Column are 1-based; zero means unknown.
type ParseError struct {
	Source string
	Offset int64
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s at line %d, column %d (byte %d): %v", ErrMalformedDataset, e.Source, e.Line, e.Column, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrMalformedDataset, e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrMalformedDataset }

// WriteError reports a persistence step that could not complete. The
// previously persisted content is left in place.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrWriteFailed, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWriteFailed }

// DatasetStore defines the interface for reading and replacing the persisted
// dataset. Save replaces the whole content atomically.
type DatasetStore interface {
	Load(ctx context.Context) (*domain.Dataset, error)
	Save(ctx context.Context, ds *domain.Dataset) error
	Location() string
}

// PublishStats summarizes one catalog publish.
type PublishStats struct {
	Upserted int64
	Modified int64
	Deleted  int64
	Skipped  int
}

// ExerciseCatalog defines the interface for the hosting application's copy of
// the exercise library.
type ExerciseCatalog interface {
	// Publish replaces catalog documents with the dataset records. When prune
	// is set, documents whose id is not in the dataset are removed.
	Publish(ctx context.Context, ds *domain.Dataset, prune bool) (PublishStats, error)
	// Count returns the number of documents in the catalog.
	Count(ctx context.Context) (int64, error)
}
