package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-reservation/internal/audit"
	"github.com/wolfman30/clinic-reservation/internal/auth"
	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/internal/live"
	"github.com/wolfman30/clinic-reservation/internal/observability/metrics"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

var reservationsTracer = otel.Tracer("clinic.internal.reservations")

// SlotCache drops cached availability after a slot changes hands.
type SlotCache interface {
	Invalidate(ctx context.Context, doctorID int64, date string)
}

// Publisher pushes changes to live admin screens.
type Publisher interface {
	Publish(msg live.Message)
}

// HistoryReader lists the recorded changes of a reservation.
type HistoryReader interface {
	List(ctx context.Context, reservationID int64) ([]audit.Entry, error)
}

// Service implements the reservation lifecycle.
type Service struct {
	repo    Repository
	cache   SlotCache
	live    Publisher
	history HistoryReader
	metrics *metrics.ReservationMetrics
	logger  *logging.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

func WithSlotCache(cache SlotCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.live = p }
}

func WithHistory(h HistoryReader) Option {
	return func(s *Service) { s.history = h }
}

func WithMetrics(m *metrics.ReservationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a reservation service.
func NewService(repo Repository, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("reservations: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{repo: repo, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create books a slot for the caller.
func (s *Service) Create(ctx context.Context, p auth.Principal, req CreateRequest) (*Reservation, error) {
	ctx, span := reservationsTracer.Start(ctx, "reservations.create")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("clinic.user_id", p.UserID),
		attribute.Int64("clinic.time_slot_id", req.TimeSlotID),
	)

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	res, err := s.repo.Create(ctx, CreateParams{
		UserID:      p.UserID,
		UserEmail:   p.Email,
		TimeSlotID:  req.TimeSlotID,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Actor:       p.Email,
	})
	if err != nil {
		if errors.Is(err, timeslots.ErrTimeSlotAlreadyTaken) {
			s.metrics.ObserveConflict()
			s.logger.Info("booking conflict", "time_slot_id", req.TimeSlotID, "user_id", p.UserID)
		}
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("clinic.reservation_id", res.ID))
	s.metrics.ObserveCreated(string(res.Status))
	s.changed(ctx, events.TypeReservationConfirmed, res)
	s.logger.Info("reservation created", "reservation_id", res.ID, "time_slot_id", res.TimeSlotID, "user_id", p.UserID)
	return res, nil
}

// Cancel cancels a reservation owned by the caller, or any reservation for
// an admin, and releases its slot.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, id int64) (*Reservation, error) {
	ctx, span := reservationsTracer.Start(ctx, "reservations.cancel")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.reservation_id", id))

	res, _, err := s.repo.Transition(ctx, id, TransitionParams{
		To:        StatusCanceled,
		Actor:     p.Email,
		EventType: events.TypeReservationCanceled,
		Guard: func(cur *Reservation) error {
			if !p.IsAdmin() && cur.UserID != p.UserID {
				return ErrForbidden
			}
			if cur.Status == StatusCanceled {
				return ErrAlreadyCanceled
			}
			return nil
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveCanceled(actorLabel(p))
	s.changed(ctx, events.TypeReservationCanceled, res)
	s.logger.Info("reservation canceled", "reservation_id", id, "actor", actorLabel(p))
	return res, nil
}

// UpdateStatus moves a reservation along the admin lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, id int64, raw string) (*Reservation, error) {
	ctx, span := reservationsTracer.Start(ctx, "reservations.update_status")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.reservation_id", id))

	to, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}

	res, from, err := s.repo.Transition(ctx, id, TransitionParams{
		To:        to,
		Actor:     p.Email,
		EventType: events.TypeReservationStatusChanged,
		Guard: func(cur *Reservation) error {
			if !CanTransition(cur.Status, to) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, cur.Status, to)
			}
			return nil
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveStatusChange(string(from), string(to))
	s.changed(ctx, events.TypeReservationStatusChanged, res)
	s.logger.Info("reservation status changed", "reservation_id", id, "from", from, "to", to)
	return res, nil
}

// Get returns a reservation visible to the caller.
func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (*Reservation, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && res.UserID != p.UserID {
		return nil, ErrForbidden
	}
	return res, nil
}

// ListMine returns the caller's reservations, CONFIRMED only unless status
// says otherwise. ALL disables the status filter. Admins see every user.
func (s *Service) ListMine(ctx context.Context, p auth.Principal, status string) ([]*Reservation, error) {
	filter := Filter{}
	if !p.IsAdmin() {
		filter.UserID = p.UserID
	}
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "":
		filter.Statuses = []Status{StatusConfirmed}
	case "ALL":
	default:
		st, err := ParseStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Statuses = []Status{st}
	}

	out, _, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Reservation{}
	}
	return out, nil
}

// Search serves the admin listing.
func (s *Service) Search(ctx context.Context, filter Filter) (*SearchResult, error) {
	ctx, span := reservationsTracer.Start(ctx, "reservations.search")
	defer span.End()

	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}
	out, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if out == nil {
		out = []*Reservation{}
	}
	span.SetAttributes(attribute.Int("clinic.result_count", total))
	return &SearchResult{Reservations: out, Count: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// History returns the recorded changes of a reservation, oldest first.
func (s *Service) History(ctx context.Context, id int64) ([]audit.Entry, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, ErrHistoryUnavailable
	}
	entries, err := s.history.List(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}

func (s *Service) changed(ctx context.Context, kind string, res *Reservation) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, res.DoctorID, res.Date)
	}
	if s.live != nil {
		s.live.Publish(live.Message{
			Type:          kind,
			ReservationID: res.ID,
			Status:        string(res.Status),
			TimeSlotID:    res.TimeSlotID,
			At:            res.UpdatedAt,
		})
	}
}

func normalizeFilter(f *Filter) error {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrInvalidFilter)
	}
	for _, d := range []string{f.Date, f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := timeslots.ParseDate(d); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return fmt.Errorf("%w: from is after to", ErrInvalidFilter)
	}
	f.Name = strings.TrimSpace(f.Name)
	return nil
}

func actorLabel(p auth.Principal) string {
	if p.IsAdmin() {
		return "admin"
	}
	return "user"
}
