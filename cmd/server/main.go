/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the APR engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, config.yaml, APR_* env vars)
  2. Build zap logger at the configured level
  3. Initialize SQLite store
  4. Optionally connect the Redis quote cache
  5. Create API handler with dependencies
  6. Start server with graceful shutdown

CONFIGURATION:
  APR_PORT        HTTP server port (default: 8080)
  APR_DB_PATH     SQLite database path (default: loans.db)
                  Use ":memory:" for an in-memory database
  APR_LOG_LEVEL   zap level: debug, info, warn, error (default: info)
  APR_REDIS_ADDR  Redis address; empty disables the quote cache
  APR_CACHE_TTL   Quote cache TTL (default: 1h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close cache and database connections
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/apr-engine/api"
	"github.com/warp/apr-engine/config"
	"github.com/warp/apr-engine/store/rediscache"
	"github.com/warp/apr-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("initializing database", zap.Error(err))
	}
	defer store.Close()

	// Optional quote cache
	var cache api.QuoteCache
	if cfg.RedisAddr != "" {
		c := rediscache.New(cfg.RedisAddr, cfg.CacheTTL)
		defer c.Close()
		cache = c
		logger.Info("quote cache enabled", zap.String("addr", cfg.RedisAddr))
	}

	handler := api.NewHandler(store, cache, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
