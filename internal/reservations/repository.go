package reservations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-reservation/internal/doctors"
	"github.com/wolfman30/clinic-reservation/internal/events"
	"github.com/wolfman30/clinic-reservation/internal/timeslots"
)

// Repository defines the interface for reservation storage. Create and
// Transition change the reservation, its slot and the outbox atomically.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Reservation, error)
	// Transition returns the updated reservation and its previous status.
	Transition(ctx context.Context, id int64, params TransitionParams) (*Reservation, Status, error)
	GetByID(ctx context.Context, id int64) (*Reservation, error)
	// Search returns one page of matches and the total match count.
	Search(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	// ListDueReminders returns CONFIRMED reservations on date that have not
	// been reminded yet.
	ListDueReminders(ctx context.Context, date string) ([]*Reservation, error)
	MarkReminded(ctx context.Context, id int64, at time.Time) error
}

// DoctorLookup resolves the department of a slot's doctor.
type DoctorLookup interface {
	GetByID(ctx context.Context, id int64) (*doctors.Doctor, error)
}

// InMemoryRepository implements Repository on top of the in-memory slot
// store, so slot state and reservations stay consistent without a database.
type InMemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	items   map[int64]*Reservation
	slots   *timeslots.InMemoryRepository
	doctors DoctorLookup
	outbox  *events.MemoryOutbox
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository. doctors and
// outbox may be nil.
func NewInMemoryRepository(slots *timeslots.InMemoryRepository, doctors DoctorLookup, outbox *events.MemoryOutbox) *InMemoryRepository {
	if slots == nil {
		panic("reservations: slot repository required")
	}
	return &InMemoryRepository{
		nextID:  1,
		items:   make(map[int64]*Reservation),
		slots:   slots,
		doctors: doctors,
		outbox:  outbox,
		now:     time.Now,
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, params CreateParams) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, err := r.slots.Reserve(params.TimeSlotID)
	if err != nil {
		return nil, err
	}

	var departmentID int64
	if r.doctors != nil {
		doc, err := r.doctors.GetByID(ctx, slot.DoctorID)
		if err != nil && !errors.Is(err, doctors.ErrDoctorNotFound) {
			_, _ = r.slots.Release(slot.ID)
			return nil, fmt.Errorf("reservations: lookup doctor: %w", err)
		}
		if doc != nil {
			departmentID = doc.DepartmentID
		}
	}

	now := r.now().UTC()
	res := &Reservation{
		ID:           r.nextID,
		TimeSlotID:   slot.ID,
		UserID:       params.UserID,
		UserEmail:    params.UserEmail,
		DoctorID:     slot.DoctorID,
		DepartmentID: departmentID,
		Date:         slot.Date,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		Status:       StatusConfirmed,
		Name:         params.Name,
		PhoneNumber:  params.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if r.outbox != nil {
		evt := newEvent(events.TypeReservationConfirmed, res, "", params.Actor, now)
		if _, err := r.outbox.Append(AggregateID(res.ID), evt); err != nil {
			_, _ = r.slots.Release(slot.ID)
			return nil, fmt.Errorf("reservations: append event: %w", err)
		}
	}

	r.nextID++
	r.items[res.ID] = res
	cp := *res
	return &cp, nil
}

func (r *InMemoryRepository) Transition(ctx context.Context, id int64, params TransitionParams) (*Reservation, Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.items[id]
	if !ok {
		return nil, "", ErrReservationNotFound
	}
	if params.Guard != nil {
		cp := *res
		if err := params.Guard(&cp); err != nil {
			return nil, "", err
		}
	}

	from := res.Status
	next := *res
	next.Status = params.To
	next.UpdatedAt = r.now().UTC()

	released := false
	if params.To == StatusCanceled {
		slot, err := r.slots.Release(res.TimeSlotID)
		if err != nil {
			return nil, "", err
		}
		released = slot.Status == timeslots.StatusOpen
	}

	if r.outbox != nil {
		evt := newEvent(params.EventType, &next, from, params.Actor, next.UpdatedAt)
		if _, err := r.outbox.Append(AggregateID(res.ID), evt); err != nil {
			if released {
				_, _ = r.slots.Reserve(res.TimeSlotID)
			}
			return nil, "", fmt.Errorf("reservations: append event: %w", err)
		}
	}
	*res = next
	cp := next
	return &cp, from, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.items[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *InMemoryRepository) Search(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*Reservation
	for _, res := range r.items {
		if matches(res, filter) {
			cp := *res
			matched = append(matched, &cp)
		}
	}
	sortReservations(matched)

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *InMemoryRepository) ListDueReminders(ctx context.Context, date string) ([]*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Reservation
	for _, res := range r.items {
		if res.Status == StatusConfirmed && res.Date == date && res.RemindedAt == nil {
			cp := *res
			out = append(out, &cp)
		}
	}
	sortReservations(out)
	return out, nil
}

func (r *InMemoryRepository) MarkReminded(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.items[id]
	if !ok {
		return ErrReservationNotFound
	}
	at = at.UTC()
	res.RemindedAt = &at
	return nil
}

func matches(res *Reservation, f Filter) bool {
	if f.UserID != 0 && res.UserID != f.UserID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if res.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Date != "" && res.Date != f.Date {
		return false
	}
	if f.From != "" && res.Date < f.From {
		return false
	}
	if f.To != "" && res.Date > f.To {
		return false
	}
	if f.DoctorID != 0 && res.DoctorID != f.DoctorID {
		return false
	}
	if f.DepartmentID != 0 && res.DepartmentID != f.DepartmentID {
		return false
	}
	if f.Name != "" && !strings.Contains(strings.ToLower(res.Name), strings.ToLower(f.Name)) {
		return false
	}
	return true
}

func sortReservations(out []*Reservation) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
}
