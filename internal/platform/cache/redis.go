// Package cache owns the Redis connection settings shared by the catalog cache
// and the asynq job queue.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const defaultPingTimeout = 5 * time.Second

// Config describes one Redis endpoint.
type Config struct {
	Addr        string
	Password    string
	DB          int
	PingTimeout time.Duration
}

func (c Config) options() *redis.Options {
	return &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// AsynqOpt returns the same endpoint in the form asynq clients and servers expect.
func (c Config) AsynqOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// NewClient builds a client without contacting the server.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(cfg.options())
}

// New builds a client and verifies the server answers a PING.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("platform/cache: address required")
	}
	client := NewClient(cfg)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}
