package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/authcore/internal/config"
	"github.com/prudhvinik1/authcore/internal/database"
	"github.com/prudhvinik1/authcore/internal/handlers"
	"github.com/prudhvinik1/authcore/internal/logging"
	"github.com/prudhvinik1/authcore/internal/repositories"
	"github.com/prudhvinik1/authcore/internal/services"
	"github.com/prudhvinik1/authcore/internal/telemetry"
)

const serviceName = "authcore"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authcore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.SlogLevel())

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn(ctx, "failed to flush traces", "error", err)
		}
	}()

	accountRepo, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokens, err := services.NewTokenManager(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTExpiry)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}

	authService := services.NewAuthService(accountRepo, tokens, services.WithLogger(logger.With("component", "auth")))
	defer authService.Wait()

	router := handlers.NewRouter(handlers.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, handlers.NewAuthHandler(authService, logger.With("component", "http")))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting server", "port", cfg.ServerPort, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	logger.Info(context.Background(), "server stopped gracefully")
	return nil
}

// openStore connects the configured credential store and returns a func that
// releases every handle it acquired.
func openStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (repositories.AccountRepository, func(), error) {
	var (
		repo    repositories.AccountRepository
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		closers = append(closers, pool.Close)
		logger.Info(ctx, "postgres pool created")

		applied, err := database.Migrate(ctx, pool)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info(ctx, "migrations applied", "count", len(applied), "migrations", applied)

		repo = repositories.NewPostgresAccountRepository(pool)

	case config.StoreDriverMongo:
		client, err := database.NewMongoClient(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create mongo client: %w", err)
		}
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn(ctx, "failed to disconnect mongo", "error", err)
			}
		})
		logger.Info(ctx, "mongo client created", "database", cfg.DatabaseName)

		repo = repositories.NewMongoAccountRepository(client.Database(cfg.DatabaseName))

	case config.StoreDriverMemory:
		logger.Warn(ctx, "using in-memory account store; data is lost on exit")
		repo = repositories.NewMemoryAccountRepository()
	}

	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		closers = append(closers, func() { redisClient.Close() })
		logger.Info(ctx, "redis account cache enabled", "ttl", cfg.AccountCacheTTL.String())

		cached := repositories.NewCachedAccountRepository(repo, redisClient, cfg.AccountCacheTTL)
		cached.OnCacheError(func(ctx context.Context, op string, err error) {
			logger.Warn(ctx, "account cache error", "op", op, "error", err)
		})
		repo = cached
	}

	return repo, closeAll, nil
}
