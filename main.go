package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sportiz/internal/adapter"
	"sportiz/internal/auth"
	"sportiz/internal/cli"
	"sportiz/internal/config"
	"sportiz/internal/domain"
	"sportiz/internal/logger"
	"sportiz/internal/repository"
	"sportiz/internal/repository/redis"
	"sportiz/internal/repository/sqlite"
	"sportiz/internal/secure"
	"sportiz/internal/service"
	"sportiz/internal/task"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Logs go to stderr so command output stays clean
	log := logger.NewWithFormat(logger.ParseLevel(cfg.LogLevel), logger.Format(cfg.LogFormat))
	log.SetOutput(os.Stderr)
	logger.SetGlobalLogger(log)

	// Log configuration (excluding secrets)
	cfg.LogConfiguration(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize storage", map[string]interface{}{"error": err.Error()})
		return 1
	}
	defer closeStore()

	vault, err := secure.Open(ctx, store, cfg.SecureStoreKey)
	if err != nil {
		log.Error("Failed to open secure store", map[string]interface{}{"error": err.Error()})
		return 1
	}

	// Background persistence for favourites and theme
	writer := task.NewWriter(store, task.DefaultWriteTimeout)
	writer.Start()
	defer writer.Stop()

	// Fixture source and stores
	source := adapter.NewSportsDBAdapterWithConfig(adapter.SportsDBConfig{
		BaseURL:   cfg.SportsDBBaseURL,
		Timeout:   cfg.HTTPTimeout,
		CacheSize: cfg.LookupCacheSize,
		CacheTTL:  cfg.LookupCacheTTL,
	})
	aggregator := service.NewAggregator(source, service.AggregatorConfig{
		LeagueIDs:           cfg.LeagueIDs,
		Concurrency:         cfg.FetchConcurrency,
		IncludeSupplemental: cfg.IncludeSupplemental,
	})
	matches := service.NewMatchesStore(aggregator)
	favourites := service.NewFavouritesStore(store, writer)
	authStore := auth.NewLocalStore(store, vault)

	// Startup hydration
	favourites.Restore(ctx)
	if _, err := authStore.LoadPersistedSession(ctx); err != nil {
		log.Warn("Failed to restore session", map[string]interface{}{"error": err.Error()})
	}

	app := &cli.App{
		Matches:         matches,
		Favourites:      favourites,
		Auth:            authStore,
		Aggregator:      aggregator,
		Calendar:        service.NewCalendarService(matches, favourites),
		RefreshInterval: cfg.RefreshInterval,
		Out:             os.Stdout,
	}

	runErr := app.Run(ctx, args)

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := writer.Flush(flushCtx); err != nil {
		log.Warn("Pending writes not flushed", map[string]interface{}{"error": err.Error()})
	}

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, cli.ErrUsage):
		fmt.Fprintln(os.Stderr, runErr)
		return 2
	default:
		fmt.Fprintln(os.Stderr, domain.UserMessage(runErr))
		return 1
	}
}

// openStore opens the configured key/value backend and runs its setup
func openStore(ctx context.Context, cfg *config.Config) (repository.KeyValueStore, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageRedis:
		client, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redis.NewKeyValueRepository(client), func() { client.Close() }, nil

	default:
		// Initialize SQLite database with WAL mode
		db, err := sqlite.NewDB(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		// Run database migrations to ensure schema is up to date
		if err := sqlite.Migrate(db.DB); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return sqlite.NewKeyValueRepository(db), func() { db.Close() }, nil
	}
}
