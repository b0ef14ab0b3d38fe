// Package kv provides the durable key-value capability that history and
// preferences persist through. Every backend replaces the whole value of a
// key in a single write, so a reader never observes a partial value.
package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

// Sentinel errors
var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidKey is returned when a key contains characters a backend cannot store.
	ErrInvalidKey = errors.New("invalid key")
)

// Store is a durable key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey checks that key is safe to use as a file name or table key.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Config selects and configures a backend.
type Config struct {
	Backend string

	// Dir is the data directory of the file backend.
	// Default: ~/.kingfisher/data
	Dir string

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string

	Redis    RedisConfig
	Postgres PoolConfig

	// ConnectTimeout bounds the retries made while connecting to a remote backend.
	// Default: 10 seconds
	ConnectTimeout time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendFile:
		// an empty file directory selects the default under the home directory
		return nil
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite backend requires a database path")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis backend requires an address")
		}
	case BackendPostgres:
		return c.Postgres.Validate()
	default:
		return fmt.Errorf("unsupported backend: %s", c.Backend)
	}
	return nil
}

// Open creates the configured backend. Connection failures are returned.
func Open(ctx context.Context, cfg Config) (Store, error) {
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kv config: %w", err)
	}

	switch cfg.Backend {
	case BackendFile:
		return NewFileStore(cfg.Dir)
	case BackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, cfg.ConnectTimeout)
	case BackendPostgres:
		return NewPostgresStore(ctx, &cfg.Postgres, cfg.ConnectTimeout)
	default:
		return NewMemoryStore(), nil
	}
}

// OpenOrMemory opens the configured backend, falling back to an in-memory
// store when it cannot be reached. Persistence is best effort: losing it
// must never stop the scanner or generator from working for the session.
func OpenOrMemory(ctx context.Context, cfg Config) Store {
	store, err := Open(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Backend).Msg("Persistence unavailable, falling back to in-memory store")
		return NewMemoryStore()
	}

	log.Debug().Str("backend", cfg.Backend).Msg("Persistence backend opened")
	return store
}
