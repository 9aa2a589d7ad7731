package testutil

import (
	"context"
	"fmt"
	"net"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer holds a throwaway server for integration tests
type RedisContainer struct {
	Container testcontainers.Container

	// Addr is the host:port the mapped server listens on
	Addr string
}

// StartRedis starts a Redis container and resolves its mapped address
func StartRedis(ctx context.Context) (*RedisContainer, error) {
	container, err := redis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
		redis.WithLogLevel(redis.LogLevelDebug),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	rc := &RedisContainer{Container: container}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redis host: %w", err)
	}

	port, err := container.MappedPort(ctx, nat.Port("6379/tcp"))
	if err != nil {
		return nil, fmt.Errorf("failed to get redis port: %w", err)
	}

	rc.Addr = net.JoinHostPort(host, port.Port())
	return rc, nil
}

// Cleanup terminates the container
func (rc *RedisContainer) Cleanup(ctx context.Context) error {
	if rc.Container == nil {
		return nil
	}
	if err := rc.Container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate redis: %w", err)
	}
	return nil
}
