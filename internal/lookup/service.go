// Package lookup resolves batches of leads to work emails through the retry
// executor and records every outcome.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/genie/internal/core/domain"
	"github.com/vietddude/genie/internal/infra/storage"
	"github.com/vietddude/genie/internal/retry"
)

// ErrInvalidLead is returned for leads without a name or domain.
var ErrInvalidLead = errors.New("invalid lead")

// Finder resolves a lead to an email.
type Finder interface {
	FindEmail(ctx context.Context, lead domain.Lead) (domain.LookupResult, error)
}

// DeadLetter parks failed lookups for a later replay.
type DeadLetter interface {
	Push(ctx context.Context, fl *domain.FailedLead) error
	Pop(ctx context.Context, limit int) ([]*domain.FailedLead, error)
}

// Sink mirrors successful records to a secondary store.
type Sink interface {
	SaveJob(ctx context.Context, rec *domain.JobRecord) error
}

// Config wires the service. Finder and Repo are required.
type Config struct {
	Finder     Finder
	Repo       storage.JobRepository
	DeadLetter DeadLetter // optional
	Sink       Sink       // optional
	Executor   *retry.Executor
	Options    retry.BatchOptions
}

// Service runs lookup batches.
type Service struct {
	finder     Finder
	repo       storage.JobRepository
	deadLetter DeadLetter
	sink       Sink
	executor   *retry.Executor
	opts       retry.BatchOptions
	log        *slog.Logger
}

// NewService creates a lookup service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Finder == nil {
		return nil, errors.New("lookup: finder is required")
	}
	if cfg.Repo == nil {
		return nil, errors.New("lookup: job repository is required")
	}
	if cfg.Executor == nil {
		cfg.Executor = retry.NewExecutor(retry.DefaultPolicy())
	}
	return &Service{
		finder:     cfg.Finder,
		repo:       cfg.Repo,
		deadLetter: cfg.DeadLetter,
		sink:       cfg.Sink,
		executor:   cfg.Executor,
		opts:       cfg.Options,
		log:        slog.Default().With("component", "lookup"),
	}, nil
}

// Label names the job for a lead in logs and records.
func Label(lead domain.Lead) string {
	return fmt.Sprintf("find-email:%s:%s", lead.Domain, lead.Name())
}

type entry struct {
	lead    domain.Lead
	replays int
}

// Run looks up every lead as one batch. The summary is returned even when
// persisting some outcomes failed; that failure is reported as the error.
func (s *Service) Run(ctx context.Context, leads []domain.Lead) (*domain.BatchSummary, error) {
	entries := make([]entry, len(leads))
	for i, l := range leads {
		entries[i] = entry{lead: l}
	}
	return s.run(ctx, entries)
}

// Replay pops up to limit dead-lettered leads and runs them as a new batch.
// A pop error is returned together with the summary of whatever was popped.
func (s *Service) Replay(ctx context.Context, limit int) (*domain.BatchSummary, error) {
	if s.deadLetter == nil {
		return nil, errors.New("lookup: no dead-letter queue configured")
	}

	// Leads returned with an error are already off the queue.
	failed, popErr := s.deadLetter.Pop(ctx, limit)
	if popErr != nil {
		popErr = fmt.Errorf("failed to pop dead letters: %w", popErr)
		if len(failed) == 0 {
			return nil, popErr
		}
		s.log.Warn("Replaying partially popped dead letters", "count", len(failed), "error", popErr)
	}

	entries := make([]entry, len(failed))
	for i, fl := range failed {
		entries[i] = entry{lead: fl.Lead, replays: fl.Replays + 1}
	}
	s.log.Info("Replaying dead letters", "count", len(entries))
	summary, err := s.run(ctx, entries)
	return summary, errors.Join(popErr, err)
}

// Status summarizes a stored batch.
func (s *Service) Status(ctx context.Context, batchID string) (*domain.BatchSummary, error) {
	counts, err := s.repo.CountByStatus(ctx, batchID)
	if err != nil {
		return nil, err
	}

	summary := &domain.BatchSummary{
		BatchID:   batchID,
		Succeeded: counts[domain.JobStatusSucceeded],
		Failed:    counts[domain.JobStatusFailed],
	}
	summary.Total = summary.Succeeded + summary.Failed
	summary.SuccessRate = successRate(summary.Succeeded, summary.Total)
	return summary, nil
}

// Jobs lists the stored records of a batch in job order.
func (s *Service) Jobs(ctx context.Context, batchID string) ([]*domain.JobRecord, error) {
	return s.repo.ListByBatch(ctx, batchID)
}

func (s *Service) run(ctx context.Context, entries []entry) (*domain.BatchSummary, error) {
	batchID := uuid.NewString()
	log := s.log.With("batch_id", batchID)
	start := time.Now()

	jobs := make([]retry.Job[domain.LookupResult], len(entries))
	for i, e := range entries {
		jobs[i] = retry.Job[domain.LookupResult]{
			Label:     Label(e.lead),
			Operation: s.lookupOp(e.lead),
		}
	}

	log.Info("Starting lookup batch", "leads", len(jobs))
	result := retry.ExecuteBatch(ctx, s.executor, jobs, s.opts)

	// Outcomes of finished jobs are recorded even if the batch was cancelled.
	persistCtx := context.WithoutCancel(ctx)
	now := time.Now().UTC()
	var persistErrs []error

	for _, succ := range result.Successes {
		rec := &domain.JobRecord{
			ID:        uuid.NewString(),
			BatchID:   batchID,
			Index:     succ.Index,
			Label:     succ.Label,
			Lead:      entries[succ.Index].lead,
			Status:    domain.JobStatusSucceeded,
			Email:     succ.Result.Email,
			CreatedAt: now,
		}
		if err := s.save(persistCtx, rec); err != nil {
			persistErrs = append(persistErrs, err)
			continue
		}
		s.mirror(persistCtx, rec)
	}

	for _, f := range result.Failures {
		category := retry.Classify(f.Err)
		rec := &domain.JobRecord{
			ID:        uuid.NewString(),
			BatchID:   batchID,
			Index:     f.Index,
			Label:     f.Label,
			Lead:      entries[f.Index].lead,
			Status:    domain.JobStatusFailed,
			Error:     f.Err.Error(),
			Category:  category.String(),
			CreatedAt: now,
		}
		if err := s.save(persistCtx, rec); err != nil {
			persistErrs = append(persistErrs, err)
		}
		if replayable(f.Err) {
			s.park(persistCtx, rec, entries[f.Index].replays)
		}
	}

	summary := &domain.BatchSummary{
		BatchID:     batchID,
		Total:       result.TotalProcessed,
		Succeeded:   len(result.Successes),
		Failed:      len(result.Failures),
		SuccessRate: result.SuccessRatePercent(),
		Duration:    time.Since(start),
	}
	log.Info("Lookup batch finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"success_rate", summary.SuccessRate,
		"duration", summary.Duration)

	if len(persistErrs) > 0 {
		return summary, fmt.Errorf("failed to persist %d job(s): %w", len(persistErrs), errors.Join(persistErrs...))
	}
	return summary, nil
}

func (s *Service) lookupOp(lead domain.Lead) retry.Operation[domain.LookupResult] {
	return func(ctx context.Context) (domain.LookupResult, error) {
		if !lead.Valid() {
			return domain.LookupResult{}, retry.Permanent(
				fmt.Errorf("%w: name %q domain %q", ErrInvalidLead, lead.Name(), lead.Domain))
		}
		return s.finder.FindEmail(ctx, lead)
	}
}

func (s *Service) save(ctx context.Context, rec *domain.JobRecord) error {
	_, err := retry.Execute(ctx, s.executor, "save-job:"+rec.ID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.repo.Save(ctx, rec)
	})
	return err
}

func (s *Service) mirror(ctx context.Context, rec *domain.JobRecord) {
	if s.sink == nil {
		return
	}
	_, err := retry.Execute(ctx, s.executor, "mirror-job:"+rec.ID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.sink.SaveJob(ctx, rec)
	})
	if err != nil {
		s.log.Warn("Failed to mirror job", "job_id", rec.ID, "error", err)
	}
}

func (s *Service) park(ctx context.Context, rec *domain.JobRecord, replays int) {
	if s.deadLetter == nil {
		return
	}
	fl := &domain.FailedLead{
		JobID:    rec.ID,
		BatchID:  rec.BatchID,
		Lead:     rec.Lead,
		Error:    rec.Error,
		Category: rec.Category,
		Replays:  replays,
		FailedAt: rec.CreatedAt,
	}
	_, err := retry.Execute(ctx, s.executor, "dead-letter:"+rec.ID, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.deadLetter.Push(ctx, fl)
	})
	if err != nil {
		s.log.Error("Failed to dead-letter job", "job_id", rec.ID, "label", rec.Label, "error", err)
	}
}

// replayable reports whether a failure may succeed on a later run.
func replayable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return retry.IsRetryable(err)
}

func successRate(succeeded, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(succeeded)/float64(total)*100)
}
