package timeslots

import (
	"context"
	"sort"
	"sync"
)

// Filter narrows admin listings. Zero values match everything.
type Filter struct {
	DoctorID int64
	Date     string
}

// Repository defines the interface for slot storage.
type Repository interface {
	ListAvailable(ctx context.Context, doctorID int64, date string) ([]*TimeSlot, error)
	List(ctx context.Context, filter Filter) ([]*TimeSlot, error)
	GetByID(ctx context.Context, id int64) (*TimeSlot, error)
	// SetStatus moves a slot to OPEN or DOCTOR_UNAVAILABLE. It fails with
	// ErrTimeSlotHasReservation while an active reservation holds the slot.
	SetStatus(ctx context.Context, id int64, status Status) (*TimeSlot, error)
	// Generate inserts the specs, skipping ones that already exist, and
	// returns the number created.
	Generate(ctx context.Context, doctorID int64, specs []SlotSpec) (int, error)
}

type slotKey struct {
	doctorID  int64
	date      string
	startTime string
}

// InMemoryRepository keeps slots in memory. Reserve and Release let the
// in-memory reservation store flip slot state atomically.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	slots  map[int64]*TimeSlot
	keys   map[slotKey]int64
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextID: 1,
		slots:  make(map[int64]*TimeSlot),
		keys:   make(map[slotKey]int64),
	}
}

func (r *InMemoryRepository) ListAvailable(ctx context.Context, doctorID int64, date string) ([]*TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*TimeSlot
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Date == date && s.Status == StatusOpen {
			cp := *s
			out = append(out, &cp)
		}
	}
	sortSlots(out)
	return out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, filter Filter) ([]*TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*TimeSlot
	for _, s := range r.slots {
		if filter.DoctorID != 0 && s.DoctorID != filter.DoctorID {
			continue
		}
		if filter.Date != "" && s.Date != filter.Date {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sortSlots(out)
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, ErrTimeSlotNotFound
	}
	cp := *s
	return &cp, nil
}

// SetStatus treats CLOSED as "held by a reservation"; the reservation store
// keeps that invariant through Reserve and Release.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id int64, status Status) (*TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, ErrTimeSlotNotFound
	}
	if s.Status == StatusClosed {
		return nil, ErrTimeSlotHasReservation
	}
	s.Status = status
	cp := *s
	return &cp, nil
}

func (r *InMemoryRepository) Generate(ctx context.Context, doctorID int64, specs []SlotSpec) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	for _, spec := range specs {
		key := slotKey{doctorID: doctorID, date: spec.Date, startTime: spec.StartTime}
		if _, exists := r.keys[key]; exists {
			continue
		}
		s := &TimeSlot{
			ID:        r.nextID,
			DoctorID:  doctorID,
			Date:      spec.Date,
			StartTime: spec.StartTime,
			EndTime:   spec.EndTime,
			Status:    StatusOpen,
		}
		r.nextID++
		r.slots[s.ID] = s
		r.keys[key] = s.ID
		created++
	}
	return created, nil
}

// Reserve marks an OPEN slot CLOSED and returns it.
func (r *InMemoryRepository) Reserve(id int64) (*TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, ErrTimeSlotNotFound
	}
	if s.Status != StatusOpen {
		return nil, ErrTimeSlotAlreadyTaken
	}
	s.Status = StatusClosed
	cp := *s
	return &cp, nil
}

// Release reopens a CLOSED slot. A slot the doctor has since been marked
// unavailable on stays that way.
func (r *InMemoryRepository) Release(id int64) (*TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.slots[id]
	if !ok {
		return nil, ErrTimeSlotNotFound
	}
	if s.Status == StatusClosed {
		s.Status = StatusOpen
	}
	cp := *s
	return &cp, nil
}

func sortSlots(out []*TimeSlot) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].DoctorID < out[j].DoctorID
	})
}
