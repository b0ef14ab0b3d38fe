//go:build integration

package kv

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, func()) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	cleanup := func() {
		_ = container.Terminate(ctx)
	}

	return container, host, cleanup
}

func TestIntegration_PostgresStore(t *testing.T) {
	ctx := context.Background()

	container, host, cleanup := startContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	})
	defer cleanup()

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	store, err := NewPostgresStore(ctx, &PoolConfig{
		ConnString: fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
	}, 30*time.Second)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestIntegration_RedisStore(t *testing.T) {
	ctx := context.Background()

	container, host, cleanup := startContainer(t, ctx, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	})
	defer cleanup()

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	store, err := NewRedisStore(ctx, RedisConfig{Addr: host + ":" + port.Port()}, 30*time.Second)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestIntegration_OpenOrMemoryUnreachableRedis(t *testing.T) {
	ctx := context.Background()

	store := OpenOrMemory(ctx, Config{
		Backend:        BackendRedis,
		Redis:          RedisConfig{Addr: "127.0.0.1:1"},
		ConnectTimeout: time.Second,
	})
	require.IsType(t, &MemoryStore{}, store)
}
