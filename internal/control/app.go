// Package control wires configuration into a running lookup application.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/genie/internal/core/config"
	"github.com/vietddude/genie/internal/core/domain"
	"github.com/vietddude/genie/internal/core/worker"
	"github.com/vietddude/genie/internal/health"
	"github.com/vietddude/genie/internal/infra/firestore"
	"github.com/vietddude/genie/internal/infra/prospeo"
	redisclient "github.com/vietddude/genie/internal/infra/redis"
	"github.com/vietddude/genie/internal/infra/storage"
	"github.com/vietddude/genie/internal/infra/storage/memory"
	"github.com/vietddude/genie/internal/infra/storage/postgres"
	"github.com/vietddude/genie/internal/lookup"
	"github.com/vietddude/genie/internal/retry"
)

// ErrReplayInProgress is returned when another process holds the replay lock.
var ErrReplayInProgress = errors.New("replay already in progress")

const replayLockTTL = 10 * time.Minute

// App owns every long-lived dependency of the lookup service.
type App struct {
	cfg          *config.AppConfig
	service      *lookup.Service
	executor     *retry.Executor
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewApp creates the application with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log := slog.Default().With("component", "app")

	policy, err := cfg.Retry.Policy()
	if err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	executor := retry.NewExecutor(policy)

	a := &App{cfg: cfg, executor: executor, log: log}

	// 1. Initialize Storage
	var repo storage.JobRepository
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		repo = postgres.NewJobRepo(db)
		log.Info("Using PostgreSQL storage")
	} else {
		repo = memory.NewJobRepo()
		log.Info("Using Memory storage")
	}

	// 2. Dead-letter queue
	var deadLetter *redisclient.DeadLetterQueue
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		deadLetter = redisclient.NewDeadLetterQueue(client, "genie")
		log.Info("Dead-letter queue enabled")
	}

	// 3. Lookup service
	svcCfg := lookup.Config{
		Finder:   prospeo.NewClient(cfg.Prospeo),
		Repo:     repo,
		Executor: executor,
		Options:  cfg.Batch.Options(),
	}
	if deadLetter != nil {
		svcCfg.DeadLetter = deadLetter
	}
	if cfg.Firestore.Enabled() {
		svcCfg.Sink = firestore.NewClient(cfg.Firestore)
		log.Info("Mirroring results to Firestore", "collection", cfg.Firestore.Collection)
	}
	service, err := lookup.NewService(svcCfg)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.service = service

	// 4. Health
	var counter health.DeadLetterCounter
	if deadLetter != nil {
		counter = deadLetter
	}
	a.healthMon = health.NewMonitor(counter)
	if a.db != nil {
		a.healthMon.Register("database", a.db.Health)
	}
	if a.redisClient != nil {
		a.healthMon.Register("redis", a.redisClient.Ping)
	}
	a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port)

	return a, nil
}

// Service returns the lookup service.
func (a *App) Service() *lookup.Service {
	return a.service
}

// Executor returns the shared retry executor.
func (a *App) Executor() *retry.Executor {
	return a.executor
}

// Health returns the health monitor.
func (a *App) Health() *health.Monitor {
	return a.healthMon
}

// Start starts the health server and background collectors.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	if a.redisClient != nil && a.cfg.Replay.Interval > 0 {
		replayer := worker.NewReplayer(a.cfg.Replay.Interval, a.cfg.Replay.Limit, a.Replay)
		go replayer.Start(ctx)
		a.log.Info("Dead-letter replay scheduled", "interval", a.cfg.Replay.Interval)
	}

	a.log.Info("Health server started", "port", a.cfg.Server.Port)
	return nil
}

// Replay runs a dead-letter replay under a cluster-wide lock when Redis is available.
func (a *App) Replay(ctx context.Context, limit int) (*domain.BatchSummary, error) {
	if a.redisClient == nil {
		return nil, errors.New("redis is not configured")
	}

	lock, err := a.redisClient.AcquireLock(ctx, "replay", replayLockTTL)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		return nil, ErrReplayInProgress
	}
	defer func() {
		if err := a.redisClient.ReleaseLock(context.WithoutCancel(ctx), lock); err != nil {
			a.log.Warn("Failed to release replay lock", "error", err)
		}
	}()

	return a.service.Replay(ctx, limit)
}

// Stop stops the application.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping app...")
	err := a.healthServer.Stop(ctx)
	a.closeStores()
	return err
}

// Close releases store connections without touching the health server.
func (a *App) Close() {
	a.closeStores()
}

func (a *App) closeStores() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
		a.redisClient = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
		a.db = nil
	}
}
