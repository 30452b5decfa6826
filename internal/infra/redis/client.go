package redis

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld is returned by ReleaseLock when the lock expired or was
// taken over by another holder.
var ErrLockNotHeld = errors.New("lock not held")

//go:embed release_lock.lua
var releaseLockLua string

var releaseLockScript = redis.NewScript(releaseLockLua)

// Client wraps the Redis connection shared by the dead-letter queue.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(name string) string {
	return fmt.Sprintf("genie:lock:%s", name)
}

// Lock is a held named lock. Token identifies this holder.
type Lock struct {
	Name  string
	Token string
}

// AcquireLock attempts to acquire a named lock for ttl. It returns a nil Lock
// when someone else holds it.
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	lock := &Lock{Name: name, Token: uuid.NewString()}
	ok, err := c.rdb.SetNX(ctx, lockKey(name), lock.Token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}

// ReleaseLock releases lock if it is still the current holder.
func (c *Client) ReleaseLock(ctx context.Context, lock *Lock) error {
	deleted, err := releaseLockScript.Run(ctx, c.rdb, []string{lockKey(lock.Name)}, lock.Token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", lock.Name, err)
	}
	if deleted == 0 {
		return fmt.Errorf("release lock %s: %w", lock.Name, ErrLockNotHeld)
	}
	return nil
}
