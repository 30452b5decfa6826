package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/genie/internal/core/domain"
	"github.com/vietddude/genie/internal/infra/storage"
)

// JobRepo keeps job records in process memory.
type JobRepo struct {
	jobs map[string]*domain.JobRecord
	mu   sync.RWMutex
}

func NewJobRepo() *JobRepo {
	return &JobRepo{
		jobs: make(map[string]*domain.JobRecord),
	}
}

func (r *JobRepo) Save(ctx context.Context, rec *domain.JobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.jobs[rec.ID] = &cp
	return nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.jobs[id]
	if !ok {
		return nil, storage.ErrJobNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *JobRepo) ListByBatch(ctx context.Context, batchID string) ([]*domain.JobRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.JobRecord
	for _, rec := range r.jobs {
		if rec.BatchID == batchID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (r *JobRepo) CountByStatus(ctx context.Context, batchID string) (map[domain.JobStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.JobStatus]int)
	for _, rec := range r.jobs {
		if rec.BatchID == batchID {
			counts[rec.Status]++
		}
	}
	if len(counts) == 0 {
		return nil, storage.ErrJobNotFound
	}
	return counts, nil
}

var _ storage.JobRepository = (*JobRepo)(nil)
