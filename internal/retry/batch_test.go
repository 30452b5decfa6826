package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecuteBatch_GroupsAndThrottles(t *testing.T) {
	p := Policy{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	ex, s := newTestExecutor(t, p)

	var (
		mu       sync.Mutex
		events   []string
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	jobs := make([]Job[int], 7)
	for i := range jobs {
		jobs[i] = Job[int]{
			Label: fmt.Sprintf("job-%d", i),
			Operation: func(ctx context.Context) (int, error) {
				n := inFlight.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				record(fmt.Sprintf("start-%d", i))
				time.Sleep(10 * time.Millisecond)
				record(fmt.Sprintf("end-%d", i))
				inFlight.Add(-1)
				return i * 10, nil
			},
		}
	}

	result := ExecuteBatch(context.Background(), ex, jobs, BatchOptions{Concurrency: 3, BatchDelay: 500 * time.Millisecond})

	if result.TotalProcessed != 7 || len(result.Successes) != 7 || len(result.Failures) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for i, succ := range result.Successes {
		if succ.Index != i || succ.Result != i*10 || succ.Label != fmt.Sprintf("job-%d", i) {
			t.Errorf("success %d out of order: %+v", i, succ)
		}
	}
	if peak.Load() > 3 {
		t.Errorf("expected at most 3 jobs in flight, saw %d", peak.Load())
	}

	// Groups are [0,1,2], [3,4,5], [6]: every job of a group ends before the next group starts.
	position := make(map[string]int, len(events))
	for i, e := range events {
		position[e] = i
	}
	groups := [][]int{{0, 1, 2}, {3, 4, 5}, {6}}
	for g := 0; g < len(groups)-1; g++ {
		for _, done := range groups[g] {
			for _, next := range groups[g+1] {
				if position[fmt.Sprintf("end-%d", done)] > position[fmt.Sprintf("start-%d", next)] {
					t.Errorf("job %d started before job %d of the previous group ended", next, done)
				}
			}
		}
	}

	// Two pauses between three groups, none after the last.
	delays := s.recorded()
	if len(delays) != 2 {
		t.Fatalf("expected 2 batch delays, got %v", delays)
	}
	for _, d := range delays {
		if d != 500*time.Millisecond {
			t.Errorf("expected 500ms batch delay, got %v", d)
		}
	}
}

func TestExecuteBatch_PartialFailure(t *testing.T) {
	p := Policy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	ex, _ := newTestExecutor(t, p)

	jobErr := errors.New("network error")
	var calls [5]atomic.Int32
	jobs := make([]Job[string], 5)
	for i := range jobs {
		jobs[i] = Job[string]{
			Label: fmt.Sprintf("lead-%d", i),
			Operation: func(ctx context.Context) (string, error) {
				calls[i].Add(1)
				if i == 1 {
					return "", jobErr
				}
				return "ok", nil
			},
		}
	}

	result := ExecuteBatch(context.Background(), ex, jobs, DefaultBatchOptions())

	if len(result.Successes) != 4 {
		t.Errorf("expected 4 successes, got %d", len(result.Successes))
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failures))
	}
	if result.Failures[0].Index != 1 {
		t.Errorf("expected failure index 1, got %d", result.Failures[0].Index)
	}
	if result.Failures[0].Err != jobErr {
		t.Errorf("expected original error, got %v", result.Failures[0].Err)
	}
	if result.SuccessRatePercent() != "80.0" {
		t.Errorf("expected success rate 80.0, got %s", result.SuccessRatePercent())
	}
	if calls[1].Load() != 3 {
		t.Errorf("expected failing job to be attempted 3 times, got %d", calls[1].Load())
	}
	for i := range calls {
		if i != 1 && calls[i].Load() != 1 {
			t.Errorf("job %d: expected 1 call, got %d", i, calls[i].Load())
		}
	}
}

func TestExecuteBatch_Empty(t *testing.T) {
	ex, s := newTestExecutor(t, DefaultPolicy())

	result := ExecuteBatch[int](context.Background(), ex, nil, DefaultBatchOptions())

	if result.TotalProcessed != 0 || result.SuccessRate != 0 {
		t.Errorf("unexpected result for empty batch: %+v", result)
	}
	if result.SuccessRatePercent() != "0.0" {
		t.Errorf("expected 0.0, got %s", result.SuccessRatePercent())
	}
	if len(s.recorded()) != 0 {
		t.Error("expected no sleeps for an empty batch")
	}
}

func TestExecuteBatch_DefaultsInvalidOptions(t *testing.T) {
	ex, s := newTestExecutor(t, DefaultPolicy())

	jobs := make([]Job[int], 4)
	for i := range jobs {
		jobs[i] = Job[int]{Operation: func(ctx context.Context) (int, error) { return i, nil }}
	}

	result := ExecuteBatch(context.Background(), ex, jobs, BatchOptions{Concurrency: 0, BatchDelay: -time.Second})

	if len(result.Successes) != 4 {
		t.Errorf("expected 4 successes, got %d", len(result.Successes))
	}
	if len(s.recorded()) != 0 {
		t.Errorf("negative batch delay should not sleep, got %v", s.recorded())
	}
}

func TestExecuteBatch_CancelledBetweenGroups(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelOnSleep := func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	ex := NewExecutor(Policy{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, WithSleep(cancelOnSleep))

	var started atomic.Int32
	jobs := make([]Job[int], 5)
	for i := range jobs {
		jobs[i] = Job[int]{Operation: func(ctx context.Context) (int, error) {
			started.Add(1)
			return i, nil
		}}
	}

	result := ExecuteBatch(ctx, ex, jobs, BatchOptions{Concurrency: 2, BatchDelay: time.Second})

	if started.Load() != 2 {
		t.Errorf("expected only the first group to start, got %d", started.Load())
	}
	if len(result.Successes) != 2 || len(result.Failures) != 3 {
		t.Fatalf("expected 2 successes and 3 failures, got %+v", result)
	}
	for _, f := range result.Failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Errorf("failure %d: expected context.Canceled, got %v", f.Index, f.Err)
		}
	}
	if result.TotalProcessed != 5 {
		t.Errorf("expected TotalProcessed 5, got %d", result.TotalProcessed)
	}
}
