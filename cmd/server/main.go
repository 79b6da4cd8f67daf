package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"cityatlas/internal/api"
	"cityatlas/internal/cache"
	"cityatlas/internal/config"
	"cityatlas/internal/directory"
	"cityatlas/internal/maps"
	"cityatlas/internal/profile"
	"cityatlas/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load(log)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	// PostgreSQL backs the trips feature only; without it the trips endpoints
	// report unavailable and everything else runs normally.
	var trips api.TripsRepo
	var dbPinger api.Pinger
	if cfg.DatabaseURL != "" {
		pool, err := storage.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()

		if err := storage.RunMigrations(ctx, pool, "migrations"); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied")

		trips = storage.NewRepository(pool)
		dbPinger = &pgxPoolPinger{pool: pool}
	} else {
		log.Warn("DATABASE_URL not set; trips endpoints disabled")
	}

	// Redis is a shared second level for the directory tables; without it the
	// service falls back to its in-process cache.
	var store directory.SecondLevel
	var redisPinger api.Pinger
	if cfg.RedisURL != "" {
		redisClient, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		store = cache.NewStore(redisClient)
		redisPinger = &redisPingerAdapter{client: redisClient}
	} else {
		log.Warn("REDIS_URL not set; directory cache is in-process only")
	}

	// Wire dependencies.
	dir := directory.NewService(cfg.GeoNamesUsername, store, log)
	aggregator := profile.NewAggregator(cfg.OpenWeatherAPIKey, cfg.MapsAPIKey, cfg.ProviderTimeout, log)
	directions := maps.NewDirectionsClient(cfg.MapsAPIKey)
	streetView := maps.NewStreetView(cfg.MapsAPIKey)
	handlers := api.NewHandlers(aggregator, dir, directions, streetView, trips, log)

	router := api.NewRouter(handlers, cfg.CORSOrigins, dbPinger, redisPinger, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// pgxPoolPinger adapts pgxpool.Pool to the api.Pinger interface.
type pgxPoolPinger struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *pgxPoolPinger) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisPingerAdapter adapts redis.Client to the api.Pinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
