package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Checker reports an error when its component is unhealthy.
type Checker func(ctx context.Context) error

// DeadLetterCounter reports how many failed lookups wait for replay.
type DeadLetterCounter interface {
	Count(ctx context.Context) (int, error)
}

// Dead-letter depth thresholds.
const (
	degradedDepth = 1
	criticalDepth = 100
)

// Monitor aggregates health status from registered components.
type Monitor struct {
	checkers   map[string]Checker
	deadLetter DeadLetterCounter
	cacheTTL   time.Duration
	lastCheck  time.Time
	lastReport *HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. deadLetter may be nil.
func NewMonitor(deadLetter DeadLetterCounter) *Monitor {
	return &Monitor{
		checkers:   make(map[string]Checker),
		deadLetter: deadLetter,
		cacheTTL:   10 * time.Second,
	}
}

// Register adds a named checker.
func (m *Monitor) Register(name string, check Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = check
	m.lastReport = nil
}

// CheckHealth runs every checker and aggregates the worst status.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid hammering dependencies
	if m.lastReport != nil && time.Since(m.lastCheck) < m.cacheTTL {
		return *m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth, len(m.checkers)),
	}

	names := make([]string, 0, len(m.checkers))
	for name := range m.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ch := ComponentHealth{Name: name, Status: StatusHealthy}
		if err := m.checkers[name](ctx); err != nil {
			ch.Status = StatusCritical
			ch.Error = err.Error()
		}
		report.Components[name] = ch
		report.SystemStatus = worst(report.SystemStatus, ch.Status)
	}

	if m.deadLetter != nil {
		depth, err := m.deadLetter.Count(ctx)
		switch {
		case err != nil:
			report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
		case depth >= criticalDepth:
			report.SystemStatus = worst(report.SystemStatus, StatusCritical)
		case depth >= degradedDepth:
			report.SystemStatus = worst(report.SystemStatus, StatusDegraded)
		}
		report.DeadLetterDepth = depth
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}

func worst(a, b SystemStatus) SystemStatus {
	rank := map[SystemStatus]int{StatusHealthy: 0, StatusDegraded: 1, StatusCritical: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
