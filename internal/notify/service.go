package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// consumerName keys the processed-events ledger for outbound mail.
const consumerName = "notify.email"

// DoctorLookup resolves doctor names for message bodies.
type DoctorLookup interface {
	GetByID(ctx context.Context, id int64) (*doctors.Doctor, error)
}

// Appointment is the part of a reservation a patient email describes.
type Appointment struct {
	ReservationID int64
	Email         string
	Name          string
	DoctorID      int64
	Date          string
	StartTime     string
	EndTime       string
}

// AppointmentFromEvent extracts the appointment from a reservation event.
func AppointmentFromEvent(evt events.ReservationEventV1) Appointment {
	return Appointment{
		ReservationID: evt.ReservationID,
		Email:         evt.UserEmail,
		Name:          evt.Name,
		DoctorID:      evt.DoctorID,
		Date:          evt.Date,
		StartTime:     evt.StartTime,
		EndTime:       evt.EndTime,
	}
}

// Service emails patients about their reservations.
type Service struct {
	email     EmailSender
	doctors   DoctorLookup
	processed events.ProcessedTracker
	logger    *logging.Logger
}

// NewService creates a notification service. doctors and processed may be nil.
func NewService(email EmailSender, doctors DoctorLookup, processed events.ProcessedTracker, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &Service{
		email:     email,
		doctors:   doctors,
		processed: processed,
		logger:    logger,
	}
}

// EventHandler returns the outbox handler that mails confirmations and
// cancellations.
func (s *Service) EventHandler() events.DeliveryHandler {
	return events.ReservationEvents(s.HandleEvent)
}

// HandleEvent sends the email an event calls for, at most once per event id.
func (s *Service) HandleEvent(ctx context.Context, eventID string, evt events.ReservationEventV1) error {
	var send func(context.Context, Appointment) error
	switch {
	case evt.Kind == events.TypeReservationConfirmed:
		send = s.ReservationConfirmed
	case evt.Kind == events.TypeReservationCanceled,
		evt.Kind == events.TypeReservationStatusChanged && evt.Status == "CANCELED":
		send = s.ReservationCanceled
	default:
		return nil
	}

	if s.processed != nil && eventID != "" {
		done, err := s.processed.AlreadyProcessed(ctx, consumerName, eventID)
		if err != nil {
			return fmt.Errorf("notify: check processed: %w", err)
		}
		if done {
			s.logger.Debug("notify: event already mailed", "event_id", eventID)
			return nil
		}
	}

	if err := send(ctx, AppointmentFromEvent(evt)); err != nil {
		return err
	}

	if s.processed != nil && eventID != "" {
		if _, err := s.processed.MarkProcessed(ctx, consumerName, eventID); err != nil {
			s.logger.Warn("notify: failed to mark event processed", "error", err, "event_id", eventID)
		}
	}
	return nil
}

// ReservationConfirmed emails the booking confirmation.
func (s *Service) ReservationConfirmed(ctx context.Context, appt Appointment) error {
	return s.send(ctx, appt, "Your reservation is confirmed",
		"Your reservation has been confirmed.",
		"If you need to cancel, please do so from My Page.")
}

// ReservationCanceled emails the cancellation notice.
func (s *Service) ReservationCanceled(ctx context.Context, appt Appointment) error {
	return s.send(ctx, appt, "Your reservation has been canceled",
		"Your reservation has been canceled.",
		"You can book a new time from the reservation page.")
}

// Reminder emails the day-before reminder.
func (s *Service) Reminder(ctx context.Context, appt Appointment) error {
	return s.send(ctx, appt, "Reminder: your appointment is tomorrow",
		"This is a reminder of your appointment tomorrow.",
		"Please arrive 10 minutes early.")
}

func (s *Service) send(ctx context.Context, appt Appointment, subject, lead, closing string) error {
	if strings.TrimSpace(appt.Email) == "" {
		s.logger.Warn("notify: reservation has no email address", "reservation_id", appt.ReservationID)
		return nil
	}
	msg := EmailMessage{
		To:      appt.Email,
		ToName:  appt.Name,
		Subject: subject,
		Body:    s.renderBody(ctx, appt, lead, closing),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send %q: %w", subject, err)
	}
	return nil
}

func (s *Service) renderBody(ctx context.Context, appt Appointment, lead, closing string) string {
	var b strings.Builder
	name := appt.Name
	if name == "" {
		name = "patient"
	}
	fmt.Fprintf(&b, "Dear %s,\n\n%s\n\n", name, lead)
	fmt.Fprintf(&b, "Reservation #%d\n", appt.ReservationID)
	fmt.Fprintf(&b, "Date: %s\n", formatDate(appt.Date))
	if appt.EndTime != "" {
		fmt.Fprintf(&b, "Time: %s - %s\n", appt.StartTime, appt.EndTime)
	} else {
		fmt.Fprintf(&b, "Time: %s\n", appt.StartTime)
	}
	fmt.Fprintf(&b, "Doctor: %s\n", s.doctorName(ctx, appt.DoctorID))
	fmt.Fprintf(&b, "\n%s\n", closing)
	return b.String()
}

func (s *Service) doctorName(ctx context.Context, id int64) string {
	if s.doctors == nil || id == 0 {
		return "your doctor"
	}
	doc, err := s.doctors.GetByID(ctx, id)
	if err != nil || doc == nil {
		return "your doctor"
	}
	if doc.Specialization != "" {
		return fmt.Sprintf("%s (%s)", doc.Name, doc.Specialization)
	}
	return doc.Name
}

func formatDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2, 2006")
}
