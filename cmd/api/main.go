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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/wolfman30/clinic-reservation/cmd/mainconfig"
	"github.com/wolfman30/clinic-reservation/internal/app/bootstrap"
	"github.com/wolfman30/clinic-reservation/internal/audit"
	appconfig "github.com/wolfman30/clinic-reservation/internal/config"
	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic reservation API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer rt.close()

	// Memory mode drains its own outbox; with Postgres the worker does.
	if rt.deliverer != nil {
		go rt.deliverer.Start(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rt.api.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}

type runtime struct {
	api       *bootstrap.API
	deliverer *events.Deliverer
	closers   []func()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// buildRuntime picks Postgres when DATABASE_URL is set and otherwise runs on
// seeded in-memory stores.
func buildRuntime(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*runtime, error) {
	rt := &runtime{}
	opts := bootstrap.APIOptions{Config: cfg, Logger: logger}

	if cfg.DatabaseURL != "" {
		pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
		if pool == nil {
			return nil, fmt.Errorf("postgres unavailable")
		}
		rt.closers = append(rt.closers, pool.Close)
		opts.Stores = bootstrap.NewPostgresStores(pool)
		statsDB := stdlib.OpenDBFromPool(pool)
		rt.closers = append(rt.closers, func() { _ = statsDB.Close() })
		opts.StatsDB = statsDB
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		opts.Stores = bootstrap.NewMemoryStores()
	}

	if redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true); redisClient != nil {
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
		opts.Redis = redisClient
	}

	var awsCfg *aws.Config
	if mainconfig.AWSEnabled(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		awsCfg = &loaded
		if cfg.ExportBucket != "" {
			opts.S3 = s3.NewFromConfig(loaded)
		}
	}

	history := buildHistory(cfg, awsCfg, opts.Stores.Memory, logger)
	if history != nil {
		opts.History = history
	}

	api, err := bootstrap.BuildAPI(opts)
	if err != nil {
		return nil, err
	}
	rt.api = api

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if _, err := api.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return nil, fmt.Errorf("ensure admin: %w", err)
		}
		logger.Info("admin account ready", "email", cfg.AdminEmail)
	}

	if opts.Stores.Memory {
		if err := bootstrap.SeedDemo(ctx, cfg, api, logger); err != nil {
			return nil, err
		}
		notifier, err := bootstrap.BuildNotifier(cfg, opts.Stores, awsCfg, logger)
		if err != nil {
			return nil, err
		}
		rt.deliverer = bootstrap.BuildDeliverer(cfg, opts.Stores, history, notifier, nil, logger)
	}
	return rt, nil
}

// buildHistory prefers DynamoDB; memory mode falls back to an in-process log.
func buildHistory(cfg *appconfig.Config, awsCfg *aws.Config, memory bool, logger *logging.Logger) audit.Store {
	if cfg.AuditTable != "" && awsCfg != nil {
		return audit.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.AuditTable, logger)
	}
	if memory {
		return audit.NewMemoryStore()
	}
	return nil
}

func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if url == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to reach postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

