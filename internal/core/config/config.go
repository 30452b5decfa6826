package config

import (
	"time"

	"github.com/vietddude/genie/internal/infra/firestore"
	"github.com/vietddude/genie/internal/infra/prospeo"
	redisclient "github.com/vietddude/genie/internal/infra/redis"
	"github.com/vietddude/genie/internal/infra/storage/postgres"
	"github.com/vietddude/genie/internal/retry"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Logging   LoggingConfig      `yaml:"logging"`
	Retry     RetryConfig        `yaml:"retry"`
	Batch     BatchConfig        `yaml:"batch"`
	Replay    ReplayConfig       `yaml:"replay"`
	Prospeo   prospeo.Config     `yaml:"prospeo"`
	Firestore firestore.Config   `yaml:"firestore"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig mirrors retry.Policy. Pointers keep an explicit zero apart
// from an omitted key.
type RetryConfig struct {
	MaxRetries     *int           `yaml:"max_retries"`
	BaseDelay      *time.Duration `yaml:"base_delay"`
	MaxDelay       *time.Duration `yaml:"max_delay"`
	JitterFraction *float64       `yaml:"jitter_fraction"`
}

// BatchConfig mirrors retry.BatchOptions.
type BatchConfig struct {
	Concurrency int            `yaml:"concurrency"`
	BatchDelay  *time.Duration `yaml:"batch_delay"`
}

// ReplayConfig controls the periodic dead-letter replay in serve mode.
type ReplayConfig struct {
	Interval time.Duration `yaml:"interval"` // 0 disables
	Limit    int           `yaml:"limit"`
}

// Policy builds a validated retry policy, defaulting omitted fields.
func (c RetryConfig) Policy() (retry.Policy, error) {
	var opts []retry.PolicyOption
	if c.MaxRetries != nil {
		opts = append(opts, retry.WithMaxRetries(*c.MaxRetries))
	}
	if c.BaseDelay != nil {
		opts = append(opts, retry.WithBaseDelay(*c.BaseDelay))
	}
	if c.MaxDelay != nil {
		opts = append(opts, retry.WithMaxDelay(*c.MaxDelay))
	}
	if c.JitterFraction != nil {
		opts = append(opts, retry.WithJitterFraction(*c.JitterFraction))
	}
	return retry.NewPolicy(opts...)
}

// Options converts to retry.BatchOptions, defaulting omitted fields.
func (c BatchConfig) Options() retry.BatchOptions {
	opts := retry.DefaultBatchOptions()
	if c.Concurrency > 0 {
		opts.Concurrency = c.Concurrency
	}
	if c.BatchDelay != nil {
		opts.BatchDelay = *c.BatchDelay
	}
	return opts
}
