package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vietddude/genie/internal/core/domain"
	"github.com/vietddude/genie/internal/infra/storage"
)

// JobRepo implements storage.JobRepository using PostgreSQL.
type JobRepo struct {
	db *DB
}

// NewJobRepo creates a new PostgreSQL job repository.
func NewJobRepo(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// jobRow adds the JSON encoded lead to the record columns.
type jobRow struct {
	domain.JobRecord
	LeadJSON []byte `db:"lead"`
}

func (row *jobRow) toRecord() (*domain.JobRecord, error) {
	rec := row.JobRecord
	if len(row.LeadJSON) > 0 {
		if err := json.Unmarshal(row.LeadJSON, &rec.Lead); err != nil {
			return nil, fmt.Errorf("failed to decode lead: %w", err)
		}
	}
	return &rec, nil
}

// Save inserts a job record, replacing any previous row with the same ID.
func (r *JobRepo) Save(ctx context.Context, rec *domain.JobRecord) error {
	lead, err := json.Marshal(rec.Lead)
	if err != nil {
		return fmt.Errorf("failed to encode lead: %w", err)
	}

	query := `
		INSERT INTO lookup_jobs (id, batch_id, job_index, label, lead, status, email, error_msg, category, created_at)
		VALUES (:id, :batch_id, :job_index, :label, :lead, :status, :email, :error_msg, :category, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			email = EXCLUDED.email,
			error_msg = EXCLUDED.error_msg,
			category = EXCLUDED.category
	`
	_, err = r.db.NamedExecContext(ctx, query, jobRow{JobRecord: *rec, LeadJSON: lead})
	if err != nil {
		return fmt.Errorf("failed to save job: %w", categorize(err))
	}
	return nil
}

// Get retrieves a job record by ID.
func (r *JobRepo) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	query := `
		SELECT id, batch_id, job_index, label, lead, status, email, error_msg, category, created_at
		FROM lookup_jobs
		WHERE id = $1
	`
	var row jobRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", categorize(err))
	}
	return row.toRecord()
}

// ListByBatch returns all records of a batch ordered by job index.
func (r *JobRepo) ListByBatch(ctx context.Context, batchID string) ([]*domain.JobRecord, error) {
	query := `
		SELECT id, batch_id, job_index, label, lead, status, email, error_msg, category, created_at
		FROM lookup_jobs
		WHERE batch_id = $1
		ORDER BY job_index ASC
	`
	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, query, batchID); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", categorize(err))
	}

	records := make([]*domain.JobRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountByStatus returns job counts per status for a batch.
func (r *JobRepo) CountByStatus(ctx context.Context, batchID string) (map[domain.JobStatus]int, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM lookup_jobs
		WHERE batch_id = $1
		GROUP BY status
	`
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, batchID); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", categorize(err))
	}
	if len(rows) == 0 {
		return nil, storage.ErrJobNotFound
	}

	counts := make(map[domain.JobStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.JobStatus(row.Status)] = row.Count
	}
	return counts, nil
}

var _ storage.JobRepository = (*JobRepo)(nil)
