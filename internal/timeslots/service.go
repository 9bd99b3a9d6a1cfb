package timeslots

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/observability/metrics"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

var timeslotsTracer = otel.Tracer("clinic.internal.timeslots")

// DoctorLookup resolves a doctor id.
type DoctorLookup interface {
	GetByID(ctx context.Context, id int64) (*doctors.Doctor, error)
}

// Service serves availability reads, admin slot changes and generation.
type Service struct {
	repo    Repository
	cache   AvailabilityCache
	doctors DoctorLookup
	metrics *metrics.ReservationMetrics
	logger  *logging.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithCache enables the availability cache.
func WithCache(cache AvailabilityCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithDoctorLookup validates doctor ids on generation.
func WithDoctorLookup(lookup DoctorLookup) Option {
	return func(s *Service) { s.doctors = lookup }
}

// WithMetrics records cache hit ratios.
func WithMetrics(m *metrics.ReservationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a time-slot service.
func NewService(repo Repository, logger *logging.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("timeslots: repository required")
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

// FindAvailable returns the OPEN slots of a doctor on a date ordered by
// start time. Cache errors fall through to the repository.
func (s *Service) FindAvailable(ctx context.Context, doctorID int64, date string) ([]Available, error) {
	ctx, span := timeslotsTracer.Start(ctx, "timeslots.find_available")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("clinic.doctor_id", doctorID),
		attribute.String("clinic.date", date),
	)

	if doctorID <= 0 {
		return nil, ErrDoctorRequired
	}
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, doctorID, date)
		switch {
		case err != nil:
			s.metrics.ObserveCache("error")
			s.logger.Warn("availability cache read failed", "error", err, "doctor_id", doctorID, "date", date)
		case ok:
			s.metrics.ObserveCache("hit")
			span.SetAttributes(attribute.Bool("clinic.cache_hit", true))
			return cached, nil
		default:
			s.metrics.ObserveCache("miss")
		}
	}

	slots, err := s.repo.ListAvailable(ctx, doctorID, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out := make([]Available, 0, len(slots))
	for _, slot := range slots {
		out = append(out, Available{TimeSlotID: slot.ID, StartTime: slot.StartTime})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, doctorID, date, out); err != nil {
			s.logger.Warn("availability cache write failed", "error", err, "doctor_id", doctorID, "date", date)
		}
	}
	return out, nil
}

// List returns slots of every status for the admin screen.
func (s *Service) List(ctx context.Context, filter Filter) ([]*TimeSlot, error) {
	if filter.Date != "" {
		if _, err := ParseDate(filter.Date); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, filter)
}

// Get returns one slot.
func (s *Service) Get(ctx context.Context, id int64) (*TimeSlot, error) {
	return s.repo.GetByID(ctx, id)
}

// Close marks a slot DOCTOR_UNAVAILABLE.
func (s *Service) Close(ctx context.Context, id int64) (*TimeSlot, error) {
	return s.setStatus(ctx, id, StatusDoctorUnavailable, "timeslots.close")
}

// Open marks a slot OPEN again.
func (s *Service) Open(ctx context.Context, id int64) (*TimeSlot, error) {
	return s.setStatus(ctx, id, StatusOpen, "timeslots.open")
}

func (s *Service) setStatus(ctx context.Context, id int64, status Status, spanName string) (*TimeSlot, error) {
	ctx, span := timeslotsTracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.time_slot_id", id))

	slot, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.Invalidate(ctx, slot.DoctorID, slot.Date)
	s.logger.Info("time slot status changed", "time_slot_id", id, "status", status)
	return slot, nil
}

// Generate creates OPEN slots for a doctor across a date range.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (int, error) {
	ctx, span := timeslotsTracer.Start(ctx, "timeslots.generate")
	defer span.End()
	span.SetAttributes(attribute.Int64("clinic.doctor_id", req.DoctorID))

	if req.DoctorID <= 0 {
		return 0, ErrDoctorRequired
	}
	from, err := ParseDate(req.From)
	if err != nil {
		return 0, err
	}
	to, err := ParseDate(req.To)
	if err != nil {
		return 0, err
	}
	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, wd := range req.Weekdays {
		if wd < 0 || wd > 6 {
			return 0, ErrInvalidWeekdays
		}
		weekdays = append(weekdays, time.Weekday(wd))
	}
	specs, err := BuildSlots(from, to, req.DayStart, req.DayEnd, req.SlotMinutes, weekdays)
	if err != nil {
		return 0, err
	}

	if s.doctors != nil {
		if _, err := s.doctors.GetByID(ctx, req.DoctorID); err != nil {
			if errors.Is(err, doctors.ErrDoctorNotFound) {
				return 0, ErrUnknownDoctor
			}
			return 0, err
		}
	}

	created, err := s.repo.Generate(ctx, req.DoctorID, specs)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if created > 0 {
		seen := map[string]bool{}
		for _, spec := range specs {
			if !seen[spec.Date] {
				seen[spec.Date] = true
				s.Invalidate(ctx, req.DoctorID, spec.Date)
			}
		}
	}
	span.SetAttributes(attribute.Int("clinic.slots_created", created))
	s.logger.Info("time slots generated", "doctor_id", req.DoctorID, "from", req.From, "to", req.To, "created", created)
	return created, nil
}

// Invalidate drops the cached availability for a doctor and date. Failures
// are logged; the entry expires on its own.
func (s *Service) Invalidate(ctx context.Context, doctorID int64, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, doctorID, date); err != nil {
		s.logger.Warn("availability cache invalidate failed", "error", err, "doctor_id", doctorID, "date", date)
	}
}
