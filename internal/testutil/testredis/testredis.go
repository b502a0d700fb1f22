//go:build testutil

// Package testredis starts a throwaway Redis for integration tests.
package testredis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Handle struct {
	Client *redis.Client
	cancel func()
	stop   func(context.Context) error
}

func (h *Handle) Close() {
	if h.Client != nil {
		_ = h.Client.Close()
	}
	if h.stop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

func Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	fail := func(err error) (*Handle, error) {
		_ = c.Terminate(ctx)
		cancel()
		return nil, err
	}

	addr, err := c.Endpoint(ctx, "")
	if err != nil {
		return fail(err)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := waitReady(ctx, client); err != nil {
		_ = client.Close()
		return fail(err)
	}
	return &Handle{Client: client, cancel: cancel, stop: c.Terminate}, nil
}

func waitReady(ctx context.Context, client *redis.Client) error {
	dead := time.Now().Add(20 * time.Second)
	for time.Now().Before(dead) {
		if err := client.Ping(ctx).Err(); err == nil {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("redis not ready")
}
