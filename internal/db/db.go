package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnectAttempts bounds how many times NewPool retries an unreachable database.
const ConnectAttempts = 6

func NewPool(ctx context.Context, dbURL string, log *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)

	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	cfg.MaxConns = 10

	var lastErr error

	for attempt := 0; attempt < ConnectAttempts; attempt++ {
		pool, err := connect(ctx, cfg)
		if err == nil {
			return pool, nil
		}

		lastErr = err
		delay := ExponentialBackoff(attempt)

		log.Warn("db connect failed, retrying", "attempt", attempt+1, "delay", delay, "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("db connect failed after %d attempts: %w", ConnectAttempts, lastErr)
}

func connect(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)

	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, cfg)

	if err != nil {
		return nil, err
	}

	err = pool.Ping(cctx)

	if err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
