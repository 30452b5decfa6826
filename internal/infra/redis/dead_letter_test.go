package redis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/genie/internal/core/domain"
)

func TestNewClient_InvalidURL(t *testing.T) {
	if _, err := NewClient(Config{URL: "not-a-redis-url"}); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestDeadLetterQueue_Integration(t *testing.T) {
	url := os.Getenv("GENIE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GENIE_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := NewClient(Config{URL: url})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	q := NewDeadLetterQueue(client, "genie-test-"+uuid.NewString())
	defer func() { _ = q.Clear(ctx) }()

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"Grace Hopper", "Ada Lovelace", "Alan Turing"} {
		fl := &domain.FailedLead{
			JobID:    uuid.NewString(),
			BatchID:  "b1",
			Lead:     domain.Lead{FullName: name, Domain: "example.com"},
			Error:    "network error",
			Category: "network-unavailable",
			FailedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := q.Push(ctx, fl); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	count, err := q.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 queued, got %d", count)
	}

	popped, err := q.Pop(ctx, 2)
	if err != nil {
		t.Fatalf("Pop failed: %v", err)
	}
	if len(popped) != 2 {
		t.Fatalf("expected 2 popped, got %d", len(popped))
	}
	if popped[0].Lead.FullName != "Grace Hopper" || popped[1].Lead.FullName != "Ada Lovelace" {
		t.Errorf("expected oldest first, got %s, %s", popped[0].Lead.FullName, popped[1].Lead.FullName)
	}

	if count, _ := q.Count(ctx); count != 1 {
		t.Errorf("expected 1 remaining, got %d", count)
	}

	if got, _ := q.Pop(ctx, 0); got != nil {
		t.Errorf("expected nil for zero limit, got %v", got)
	}

	// A corrupt payload is consumed without blocking the entries behind it.
	if err := client.rdb.Set(ctx, q.entryKey("corrupt"), "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := client.rdb.ZAdd(ctx, q.queueKey(), redis.Z{Score: 0, Member: "corrupt"}).Err(); err != nil {
		t.Fatalf("ZAdd failed: %v", err)
	}
	popped, err = q.Pop(ctx, 10)
	if err != nil {
		t.Fatalf("Pop failed: %v", err)
	}
	if len(popped) != 1 || popped[0].Lead.FullName != "Alan Turing" {
		t.Errorf("expected only the valid entry, got %v", popped)
	}
	if count, _ := q.Count(ctx); count != 0 {
		t.Errorf("expected empty queue, got %d", count)
	}
	if n, _ := client.rdb.Exists(ctx, q.entryKey("corrupt")).Result(); n != 0 {
		t.Error("expected popped entry blob to be removed")
	}
}

func TestDecodeEntries(t *testing.T) {
	valid, err := json.Marshal(&domain.FailedLead{
		JobID: "j1",
		Lead:  domain.Lead{FullName: "Ada Lovelace", Domain: "acme.com"},
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name  string
		pairs []string
		want  []string
	}{
		{"empty", nil, nil},
		{"valid", []string{"j1", string(valid)}, []string{"j1"}},
		{"expired skipped", []string{"j0", "", "j1", string(valid)}, []string{"j1"}},
		{"corrupt skipped", []string{"bad", "{not json", "j1", string(valid)}, []string{"j1"}},
		{"odd trailing id ignored", []string{"j1", string(valid), "dangling"}, []string{"j1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeEntries(log, tt.pairs)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d leads, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].JobID != id {
					t.Errorf("lead %d: expected job %s, got %s", i, id, got[i].JobID)
				}
			}
		})
	}
}

func TestClient_Lock_Integration(t *testing.T) {
	url := os.Getenv("GENIE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GENIE_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := NewClient(Config{URL: url})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer client.Close()

	name := "test-" + uuid.NewString()
	lock, err := client.AcquireLock(ctx, name, time.Minute)
	if err != nil || lock == nil {
		t.Fatalf("expected first acquire to succeed, got %v, %v", lock, err)
	}
	if other, _ := client.AcquireLock(ctx, name, time.Minute); other != nil {
		t.Error("expected second acquire to fail")
	}
	if err := client.ReleaseLock(ctx, lock); err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}

	// A holder whose lock expired must not release the next holder's lock.
	next, err := client.AcquireLock(ctx, name, time.Minute)
	if err != nil || next == nil {
		t.Fatalf("expected acquire after release to succeed, got %v, %v", next, err)
	}
	if err := client.ReleaseLock(ctx, lock); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("expected ErrLockNotHeld for a stale token, got %v", err)
	}
	if other, _ := client.AcquireLock(ctx, name, time.Minute); other != nil {
		t.Error("expected lock to stay with the current holder")
	}
	if err := client.ReleaseLock(ctx, next); err != nil {
		t.Errorf("ReleaseLock failed: %v", err)
	}
}
