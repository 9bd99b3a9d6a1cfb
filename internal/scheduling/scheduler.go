package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) (int, error)

// Scheduler runs jobs on cron expressions until its context ends.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *logging.Logger
}

// NewScheduler creates a scheduler evaluating expressions in loc. Runs of
// the same job never overlap.
func NewScheduler(loc *time.Location, logger *logging.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		ctx:    context.Background(),
		logger: logger,
	}
}

// Add registers job under a standard five-field expression or a descriptor
// such as @hourly.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("scheduling: invalid schedule %q for %s: %w", spec, name, err)
	}
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		n, err := job(s.ctx)
		if err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err, "count", n)
			return
		}
		s.logger.Info("scheduled job finished", "job", name, "count", n, "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("scheduling: add %s: %w", name, err)
	}
	s.logger.Info("job scheduled", "job", name, "schedule", spec)
	return nil
}

// Run starts the cron loop and blocks until ctx is canceled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	<-ctx.Done()
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}
