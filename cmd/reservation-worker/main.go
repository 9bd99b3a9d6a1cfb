package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-reservation/cmd/mainconfig"
	"github.com/wolfman30/clinic-reservation/internal/app/bootstrap"
	"github.com/wolfman30/clinic-reservation/internal/audit"
	appconfig "github.com/wolfman30/clinic-reservation/internal/config"
	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/internal/scheduling"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		logger.Error("reservation worker requires DATABASE_URL")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var awsCfg *aws.Config
	if mainconfig.AWSEnabled(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	var cache timeslots.AvailabilityCache
	if redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true); redisClient != nil {
		defer redisClient.Close()
		cache = bootstrap.BuildAvailabilityCache(redisClient, cfg)
	}

	w, err := buildWorker(cfg, bootstrap.NewPostgresStores(pool), awsCfg, cache, logger)
	if err != nil {
		logger.Error("failed to build worker", "error", err)
		os.Exit(1)
	}

	go w.deliverer.Start(ctx)
	logger.Info("reservation worker started",
		"slot_schedule", cfg.SlotGenerationSchedule,
		"reminder_schedule", cfg.ReminderSchedule,
	)
	w.scheduler.Run(ctx)
	logger.Info("reservation worker stopped")
}

type worker struct {
	deliverer *events.Deliverer
	scheduler *scheduling.Scheduler
}

// buildWorker wires outbox delivery and the cron jobs. The audit table and
// event queue are only attached when AWS is configured.
func buildWorker(cfg *appconfig.Config, stores *bootstrap.Stores, awsCfg *aws.Config, cache timeslots.AvailabilityCache, logger *logging.Logger) (*worker, error) {
	notifier, err := bootstrap.BuildNotifier(cfg, stores, awsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}

	var history audit.Store
	var queue events.DeliveryHandler
	if awsCfg != nil {
		if cfg.AuditTable != "" {
			history = audit.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.AuditTable, logger)
		}
		if cfg.EventsQueueURL != "" {
			queue = events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.EventsQueueURL)
		}
	}

	var slotOpts []timeslots.Option
	if cache != nil {
		slotOpts = append(slotOpts, timeslots.WithCache(cache))
	}
	scheduler, err := bootstrap.BuildScheduler(cfg, stores, notifier, logger, slotOpts...)
	if err != nil {
		return nil, err
	}

	return &worker{
		deliverer: bootstrap.BuildDeliverer(cfg, stores, history, notifier, queue, logger),
		scheduler: scheduler,
	}, nil
}
