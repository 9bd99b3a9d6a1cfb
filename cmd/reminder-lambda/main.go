package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinic-reservation/cmd/mainconfig"
	"github.com/wolfman30/clinic-reservation/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-reservation/internal/config"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

type reminderRunner interface {
	Run(ctx context.Context) (int, error)
}

type result struct {
	Sent int `json:"sent"`
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		panic("reminder lambda requires DATABASE_URL")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		panic(fmt.Errorf("connect postgres: %w", err))
	}

	var awsCfg *aws.Config
	if mainconfig.AWSEnabled(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			panic(fmt.Errorf("load AWS config: %w", err))
		}
		awsCfg = &loaded
	}

	stores := bootstrap.NewPostgresStores(pool)
	notifier, err := bootstrap.BuildNotifier(cfg, stores, awsCfg, logger)
	if err != nil {
		panic(err)
	}
	job := bootstrap.BuildReminderJob(cfg, stores.Reservations, notifier, logger)

	lambda.Start(func(ctx context.Context, evt events.CloudWatchEvent) (result, error) {
		return handle(ctx, job, logger, evt)
	})
}

// handle runs one reminder pass per scheduled event. Partial failures are
// returned so the invocation is retried; reservations already reminded are
// skipped on the retry.
func handle(ctx context.Context, runner reminderRunner, logger *logging.Logger, evt events.CloudWatchEvent) (result, error) {
	sent, err := runner.Run(ctx)
	logger.Info("reminder run finished", "event_id", evt.ID, "source", evt.Source, "sent", sent)
	if err != nil {
		logger.Error("reminder run had failures", "event_id", evt.ID, "error", err)
		return result{Sent: sent}, err
	}
	return result{Sent: sent}, nil
}
