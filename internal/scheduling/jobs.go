// Package scheduling runs the periodic slot generation and reminder jobs.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/notify"
	"github.com/wolfman30/clinic-reservation/internal/reservations"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// DoctorSource lists every doctor.
type DoctorSource interface {
	List(ctx context.Context, departmentID int64) ([]*doctors.Doctor, error)
}

// SlotCreator generates slots for one doctor.
type SlotCreator interface {
	Generate(ctx context.Context, req timeslots.GenerateRequest) (int, error)
}

// SlotConfig is the daily window the generator fills.
type SlotConfig struct {
	DayStart    string
	DayEnd      string
	SlotMinutes int
	HorizonDays int
}

// SlotGenerator keeps every doctor's weekday slots filled for the horizon.
type SlotGenerator struct {
	doctors DoctorSource
	slots   SlotCreator
	cfg     SlotConfig
	loc     *time.Location
	now     func() time.Time
	logger  *logging.Logger
}

func NewSlotGenerator(doctors DoctorSource, slots SlotCreator, cfg SlotConfig, loc *time.Location, logger *logging.Logger) *SlotGenerator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 14
	}
	if cfg.HorizonDays > timeslots.MaxGenerateDays {
		cfg.HorizonDays = timeslots.MaxGenerateDays
	}
	return &SlotGenerator{doctors: doctors, slots: slots, cfg: cfg, loc: loc, now: time.Now, logger: logger}
}

// Run generates missing slots from today through the horizon and returns
// how many were created. A failing doctor does not stop the others.
func (g *SlotGenerator) Run(ctx context.Context) (int, error) {
	docs, err := g.doctors.List(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("scheduling: list doctors: %w", err)
	}

	today := g.now().In(g.loc)
	from := today.Format(timeslots.DateLayout)
	to := today.AddDate(0, 0, g.cfg.HorizonDays-1).Format(timeslots.DateLayout)

	var (
		total int
		errs  []error
	)
	for _, doc := range docs {
		created, err := g.slots.Generate(ctx, timeslots.GenerateRequest{
			DoctorID:    doc.ID,
			From:        from,
			To:          to,
			DayStart:    g.cfg.DayStart,
			DayEnd:      g.cfg.DayEnd,
			SlotMinutes: g.cfg.SlotMinutes,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("doctor %d: %w", doc.ID, err))
			continue
		}
		total += created
	}
	g.logger.Info("slot generation finished", "doctors", len(docs), "from", from, "to", to, "created", total)
	return total, errors.Join(errs...)
}

// ReminderSource finds and marks reservations due for a reminder.
type ReminderSource interface {
	ListDueReminders(ctx context.Context, date string) ([]*reservations.Reservation, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

// ReminderSender emails one reminder.
type ReminderSender interface {
	Reminder(ctx context.Context, appt notify.Appointment) error
}

// ReminderJob emails patients the day before their appointment.
type ReminderJob struct {
	source ReminderSource
	sender ReminderSender
	loc    *time.Location
	now    func() time.Time
	logger *logging.Logger
}

func NewReminderJob(source ReminderSource, sender ReminderSender, loc *time.Location, logger *logging.Logger) *ReminderJob {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReminderJob{source: source, sender: sender, loc: loc, now: time.Now, logger: logger}
}

// Run reminds every CONFIRMED reservation dated tomorrow in the clinic
// timezone that has not been reminded, and returns how many were sent.
func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	tomorrow := j.now().In(j.loc).AddDate(0, 0, 1).Format(timeslots.DateLayout)
	due, err := j.source.ListDueReminders(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("scheduling: list due reminders: %w", err)
	}

	var (
		sent int
		errs []error
	)
	for _, res := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		appt := notify.Appointment{
			ReservationID: res.ID,
			Email:         res.UserEmail,
			Name:          res.Name,
			DoctorID:      res.DoctorID,
			Date:          res.Date,
			StartTime:     res.StartTime,
			EndTime:       res.EndTime,
		}
		if err := j.sender.Reminder(ctx, appt); err != nil {
			errs = append(errs, fmt.Errorf("reservation %d: %w", res.ID, err))
			continue
		}
		if err := j.source.MarkReminded(ctx, res.ID, j.now().UTC()); err != nil {
			errs = append(errs, fmt.Errorf("reservation %d: %w", res.ID, err))
			continue
		}
		sent++
	}
	j.logger.Info("reminders sent", "date", tomorrow, "due", len(due), "sent", sent)
	return sent, errors.Join(errs...)
}
