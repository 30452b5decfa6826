package domain

import "time"

// JobStatus is the final state of a lookup job.
type JobStatus string

const (
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JobRecord is the persisted outcome of one batch job.
type JobRecord struct {
	ID        string    `json:"id"         db:"id"`
	BatchID   string    `json:"batch_id"   db:"batch_id"`
	Index     int       `json:"index"      db:"job_index"`
	Label     string    `json:"label"      db:"label"`
	Lead      Lead      `json:"lead"       db:"-"`
	Status    JobStatus `json:"status"     db:"status"`
	Email     string    `json:"email"      db:"email"`
	Error     string    `json:"error_msg"  db:"error_msg"`
	Category  string    `json:"category"   db:"category"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BatchSummary reports the outcome of a whole lookup batch.
type BatchSummary struct {
	BatchID     string        `json:"batch_id"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	SuccessRate string        `json:"success_rate"`
	Duration    time.Duration `json:"duration"`
}

// FailedLead is a lookup that exhausted its retries and waits for replay.
type FailedLead struct {
	JobID    string    `json:"job_id"`
	BatchID  string    `json:"batch_id"`
	Lead     Lead      `json:"lead"`
	Error    string    `json:"error"`
	Category string    `json:"category"`
	Replays  int       `json:"replays"` // Times the lead was already replayed
	FailedAt time.Time `json:"failed_at"`
}
