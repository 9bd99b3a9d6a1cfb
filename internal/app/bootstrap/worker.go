package bootstrap

import (
	"fmt"

	"github.com/wolfman30/clinic-reservation/internal/audit"
	appconfig "github.com/wolfman30/clinic-reservation/internal/config"
	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/internal/notify"
	"github.com/wolfman30/clinic-reservation/internal/reservations"
	"github.com/wolfman30/clinic-reservation/internal/scheduling"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// BuildDeliverer drains the outbox into the audit log, email notifications
// and, when configured, the event queue.
func BuildDeliverer(cfg *appconfig.Config, stores *Stores, history audit.Store, notifier *notify.Service, queue events.DeliveryHandler, logger *logging.Logger) *events.Deliverer {
	fanout := events.Fanout{}
	if history != nil {
		fanout = append(fanout, audit.EventHandler(history))
	}
	if notifier != nil {
		fanout = append(fanout, notifier.EventHandler())
	}
	if queue != nil {
		fanout = append(fanout, queue)
	}
	return events.NewDeliverer(stores.Outbox, fanout, logger).
		WithBatchSize(int32(cfg.OutboxBatchSize)).
		WithInterval(cfg.OutboxPollInterval)
}

// BuildScheduler registers slot generation and reminders on their cron
// schedules. slotOpts configure the generating slot service, typically its
// availability cache.
func BuildScheduler(cfg *appconfig.Config, stores *Stores, notifier *notify.Service, logger *logging.Logger, slotOpts ...timeslots.Option) (*scheduling.Scheduler, error) {
	if notifier == nil {
		return nil, fmt.Errorf("bootstrap: scheduler requires a notifier")
	}
	loc := cfg.Location()
	slotSvc := timeslots.NewService(stores.TimeSlots, logger, append([]timeslots.Option{timeslots.WithDoctorLookup(stores.Doctors)}, slotOpts...)...)

	slots := scheduling.NewSlotGenerator(stores.Doctors, slotSvc, SlotConfig(cfg), loc, logger)
	reminders := scheduling.NewReminderJob(stores.Reservations, notifier, loc, logger)

	s := scheduling.NewScheduler(loc, logger)
	if err := s.Add("slot-generation", cfg.SlotGenerationSchedule, slots.Run); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if err := s.Add("reminders", cfg.ReminderSchedule, reminders.Run); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return s, nil
}

// BuildReminderJob is the reminder run used by the scheduled lambda.
func BuildReminderJob(cfg *appconfig.Config, repo reservations.Repository, notifier *notify.Service, logger *logging.Logger) *scheduling.ReminderJob {
	return scheduling.NewReminderJob(repo, notifier, cfg.Location(), logger)
}

