package redis

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/genie/internal/core/domain"
	"github.com/vietddude/genie/internal/metrics"
)

// entryTTL bounds how long a dead-lettered lead survives without replay.
const entryTTL = 7 * 24 * time.Hour

//go:embed pop_dead_letters.lua
var popDeadLettersLua string

var popDeadLettersScript = redis.NewScript(popDeadLettersLua)

// DeadLetterQueue stores failed lookups in a sorted set ordered by failure time.
type DeadLetterQueue struct {
	rdb       *redis.Client
	namespace string
	log       *slog.Logger
}

// NewDeadLetterQueue creates a new Redis-backed dead-letter queue.
func NewDeadLetterQueue(client *Client, namespace string) *DeadLetterQueue {
	if namespace == "" {
		namespace = "genie"
	}
	return &DeadLetterQueue{
		rdb:       client.rdb,
		namespace: namespace,
		log:       slog.Default().With("component", "dead_letter"),
	}
}

// Key helpers
func (q *DeadLetterQueue) queueKey() string {
	return fmt.Sprintf("%s:dead_letter", q.namespace)
}

func (q *DeadLetterQueue) entryKey(jobID string) string {
	return fmt.Sprintf("%s:dead_letter:%s", q.namespace, jobID)
}

// Push adds a failed lead to the queue.
func (q *DeadLetterQueue) Push(ctx context.Context, fl *domain.FailedLead) error {
	data, err := json.Marshal(fl)
	if err != nil {
		return fmt.Errorf("failed to marshal failed lead: %w", err)
	}

	if err := q.rdb.Set(ctx, q.entryKey(fl.JobID), data, entryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed lead: %w", err)
	}

	// Oldest failures are replayed first
	if err := q.rdb.ZAdd(ctx, q.queueKey(), redis.Z{
		Score:  float64(fl.FailedAt.UnixMilli()),
		Member: fl.JobID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	q.refreshDepth(ctx)
	return nil
}

// Pop removes and returns up to limit of the oldest failed leads. Ids and
// entries are removed in one script, so a failed call leaves the queue as it
// was.
func (q *DeadLetterQueue) Pop(ctx context.Context, limit int) ([]*domain.FailedLead, error) {
	if limit <= 0 {
		return nil, nil
	}

	pairs, err := popDeadLettersScript.Run(ctx, q.rdb,
		[]string{q.queueKey()},
		limit,          // ARGV[1]: max entries
		q.entryKey(""), // ARGV[2]: entry key prefix
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("pop dead letters: %w", err)
	}

	leads := decodeEntries(q.log, pairs)
	q.refreshDepth(ctx)
	return leads, nil
}

// decodeEntries turns the script's id/payload pairs into leads. Expired and
// undecodable entries are logged with their payload and skipped.
func decodeEntries(log *slog.Logger, pairs []string) []*domain.FailedLead {
	leads := make([]*domain.FailedLead, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		jobID, data := pairs[i], pairs[i+1]
		if data == "" {
			log.Warn("Dead letter expired before replay", "job_id", jobID)
			continue
		}

		var fl domain.FailedLead
		if err := json.Unmarshal([]byte(data), &fl); err != nil {
			log.Error("Dropping undecodable dead letter", "job_id", jobID, "payload", data, "error", err)
			continue
		}
		leads = append(leads, &fl)
	}
	return leads
}

// Count returns the number of queued failed leads.
func (q *DeadLetterQueue) Count(ctx context.Context) (int, error) {
	count, err := q.rdb.ZCard(ctx, q.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}

// Clear removes every queued entry.
func (q *DeadLetterQueue) Clear(ctx context.Context) error {
	ids, err := q.rdb.ZRange(ctx, q.queueKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange failed: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, q.entryKey(id))
	}
	keys = append(keys, q.queueKey())
	if err := q.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	metrics.DeadLetterDepth.Set(0)
	return nil
}

func (q *DeadLetterQueue) refreshDepth(ctx context.Context) {
	if n, err := q.Count(ctx); err == nil {
		metrics.DeadLetterDepth.Set(float64(n))
	}
}
