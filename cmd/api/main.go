package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/placeshub/internal/auth"
	"github.com/geocoder89/placeshub/internal/config"
	"github.com/geocoder89/placeshub/internal/db"
	"github.com/geocoder89/placeshub/internal/geocode"
	httpx "github.com/geocoder89/placeshub/internal/http"
	"github.com/geocoder89/placeshub/internal/imagestore"
	"github.com/geocoder89/placeshub/internal/observability"
	"github.com/geocoder89/placeshub/internal/redisclient"
	"github.com/geocoder89/placeshub/internal/repo/postgres"
	"github.com/geocoder89/placeshub/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "placeshub-api", cfg.Env, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing disabled", "err", err)
		} else {
			defer func() {
				tctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(tctx)
			}()
		}
	}

	pool, err := db.NewPool(ctx, cfg.DBURL, log)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "up"); err != nil {
			log.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	images, err := newImageStore(ctx, cfg, log)
	if err != nil {
		log.Error("image store setup failed", "err", err)
		os.Exit(1)
	}

	rc := redisclient.Connect(ctx, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	defer rc.Close()

	geo := newGeocoder(cfg, rc.Raw(), prom, log)

	usersRepo := postgres.NewUsersRepo(pool, prom)
	placesRepo := postgres.NewPlacesRepo(pool, prom)
	tx := postgres.NewTransactor(pool, prom)

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	users := service.NewUsersService(usersRepo, tokens, log)
	places := service.NewPlacesService(placesRepo, usersRepo, service.NewCoordinator(tx), geo, images, log)

	var shuttingDown atomic.Bool

	router := httpx.NewRouter(log, httpx.Deps{
		Env:            cfg.Env,
		Users:          users,
		Places:         places,
		Images:         images,
		Tokens:         tokens,
		Ping:           pool.Ping,
		ShuttingDown:   shuttingDown.Load,
		Prom:           prom,
		Gatherer:       reg,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
	})

	// server set up
	srv := httpx.NewServer(fmt.Sprintf(":%d", cfg.Port), router)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	shuttingDown.Store(true)
	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}

func newImageStore(ctx context.Context, cfg config.Config, log *slog.Logger) (imagestore.Store, error) {
	if cfg.ImageStore == "s3" {
		return imagestore.NewS3(ctx, imagestore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		}, log)
	}
	return imagestore.NewDisk(cfg.UploadDir)
}

// newGeocoder falls back to a fixed location when no API key is configured.
func newGeocoder(cfg config.Config, rdb *redis.Client, prom *observability.Prom, log *slog.Logger) service.Geocoder {
	var inner geocode.Geocoder
	if cfg.GeocoderAPIKey == "" {
		log.Warn("GOOGLE_API_KEY not set, every address resolves to the default location")
		inner = geocode.NewStatic()
	} else {
		inner = geocode.NewGoogle(geocode.GoogleConfig{
			APIKey:  cfg.GeocoderAPIKey,
			BaseURL: cfg.GeocoderBaseURL,
			Timeout: cfg.GeocoderTimeout,
		}, nil)
	}

	protected := geocode.NewProtected(inner, geocode.ProtectedConfig{
		Timeout:          cfg.GeocoderTimeout,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 1,
	})

	return geocode.NewCaching(protected, rdb, cfg.GeocodeCacheTTL, prom, log)
}
