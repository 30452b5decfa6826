package storage

import (
	"context"
	"errors"

	"github.com/vietddude/genie/internal/core/domain"
)

var (
	// ErrJobNotFound is returned when no job matches the query
	ErrJobNotFound = errors.New("job not found")
)

// JobRepository handles job record storage operations
type JobRepository interface {
	// Save inserts or replaces a job record
	Save(ctx context.Context, rec *domain.JobRecord) error

	// Get retrieves a job record by ID
	Get(ctx context.Context, id string) (*domain.JobRecord, error)

	// ListByBatch returns all records of a batch ordered by job index
	ListByBatch(ctx context.Context, batchID string) ([]*domain.JobRecord, error)

	// CountByStatus returns job counts per status for a batch.
	// Returns ErrJobNotFound when the batch has no records.
	CountByStatus(ctx context.Context, batchID string) (map[domain.JobStatus]int, error)
}
