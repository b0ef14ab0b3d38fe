package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/kingfisher/internal/app"
	"github.com/wolfeidau/kingfisher/internal/kv"
	"github.com/wolfeidau/kingfisher/internal/logger"
	"github.com/wolfeidau/kingfisher/internal/telemetry"
)

type Globals struct {
	Debug             bool
	Version           string
	Telemetry         bool
	TelemetryInterval time.Duration
	Store             StoreFlags

	// Stdout and Stdin default to the process streams.
	Stdout io.Writer
	Stdin  io.Reader
}

// StoreFlags select the persistence backend shared by every command.
type StoreFlags struct {
	Backend        string        `help:"persistence backend (memory, file, redis, sqlite or postgres)" default:"file" enum:"memory,file,redis,sqlite,postgres" env:"KINGFISHER_STORE_BACKEND"`
	Dir            string        `help:"data directory of the file backend (default: ~/.kingfisher/data)" env:"KINGFISHER_STORE_DIR"`
	SQLitePath     string        `name:"sqlite-path" help:"database file of the sqlite backend" default:"kingfisher.db" env:"KINGFISHER_STORE_SQLITE_PATH"`
	RedisAddr      string        `help:"redis address" default:"localhost:6379" env:"KINGFISHER_REDIS_ADDR"`
	RedisUsername  string        `help:"redis username" env:"KINGFISHER_REDIS_USERNAME"`
	RedisPassword  string        `help:"redis password" env:"KINGFISHER_REDIS_PASSWORD"`
	RedisDB        int           `help:"redis database number" default:"0" env:"KINGFISHER_REDIS_DB"`
	PostgresURL    string        `name:"postgres-url" help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`
	PostgresConns  int32         `help:"maximum PostgreSQL connections" default:"4" env:"KINGFISHER_POSTGRES_MAX_CONNS"`
	ConnectTimeout time.Duration `help:"how long to retry connecting to a remote backend" default:"10s" env:"KINGFISHER_STORE_CONNECT_TIMEOUT"`
}

func (s StoreFlags) Config() kv.Config {
	return kv.Config{
		Backend:    s.Backend,
		Dir:        s.Dir,
		SQLitePath: s.SQLitePath,
		Redis: kv.RedisConfig{
			Addr:     s.RedisAddr,
			Username: s.RedisUsername,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		},
		Postgres: kv.PoolConfig{
			ConnString: s.PostgresURL,
			MaxConns:   s.PostgresConns,
		},
		ConnectTimeout: s.ConnectTimeout,
	}
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Globals) stdin() io.Reader {
	if g.Stdin == nil {
		return os.Stdin
	}
	return g.Stdin
}

// setup configures logging and, when enabled, metric export. The returned
// function flushes telemetry.
func (g *Globals) setup(ctx context.Context) func() {
	log.Logger = logger.Setup(g.Debug)

	if !g.Telemetry {
		return func() {}
	}

	shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
		ServiceName: "kingfisher",
		Version:     g.Version,
		Interval:    g.TelemetryInterval,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}

// controller opens the configured store, falling back to memory, and
// builds the application around it.
func (g *Globals) controller(ctx context.Context, cfg app.Config) *app.Controller {
	cfg.Store = kv.OpenOrMemory(ctx, g.Store.Config())
	return app.New(ctx, cfg)
}

func closeController(c *app.Controller) {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
