package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/placeshub/internal/config"
	"github.com/geocoder89/placeshub/internal/db"
	"github.com/geocoder89/placeshub/internal/observability"
)

const usage = `usage: migrate [command] [args...]

commands are passed to goose: up (default), up-by-one, up-to VERSION, down,
down-to VERSION, redo, reset, status, version`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBURL, log)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, command, args...); err != nil {
		log.Error("migration failed", "command", command, "err", err)
		stop()
		pool.Close()
		os.Exit(1)
	}

	log.Info("migration complete", "command", command)
}
