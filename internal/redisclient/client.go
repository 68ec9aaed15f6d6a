// Package redisclient wraps the go-redis client used for the geocode cache.
package redisclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// Connect returns nil when no address is configured or the server does not answer a ping.
// Callers treat a nil client as "cache in process only".
func Connect(ctx context.Context, cfg Config, log *slog.Logger) *Client {
	if cfg.Addr == "" {
		return nil
	}

	c := New(cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := c.Ping(pingCtx); err != nil {
		log.Warn("redis unavailable, geocode cache stays in process", "addr", cfg.Addr, "err", err)
		_ = c.Close()
		return nil
	}

	log.Info("redis connected", "addr", cfg.Addr)
	return c
}

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.redisdb.Close()
}

// Raw exposes the underlying client. A nil *Client yields a nil *redis.Client.
func (c *Client) Raw() *redis.Client {
	if c == nil {
		return nil
	}
	return c.redisdb
}
