// Package audit keeps the append-only history of reservation changes.
package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/clinic-reservation/internal/events"
)

// Entry is one recorded change to a reservation.
type Entry struct {
	ReservationID int64     `json:"reservationId"`
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	FromStatus    string    `json:"fromStatus,omitempty"`
	ToStatus      string    `json:"toStatus"`
	Actor         string    `json:"actor"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Store persists history entries. Record must be idempotent on EventID.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, reservationID int64) ([]Entry, error)
}

// EntryFromEvent converts a delivered reservation event into a history entry.
func EntryFromEvent(eventID string, evt events.ReservationEventV1) Entry {
	return Entry{
		ReservationID: evt.ReservationID,
		EventID:       eventID,
		EventType:     evt.Kind,
		FromStatus:    evt.FromStatus,
		ToStatus:      evt.Status,
		Actor:         evt.Actor,
		OccurredAt:    evt.OccurredAt.UTC(),
	}
}

// EventHandler returns an outbox handler that records every reservation
// event in store.
func EventHandler(store Store) events.DeliveryHandler {
	return events.ReservationEvents(func(ctx context.Context, eventID string, evt events.ReservationEventV1) error {
		return store.Record(ctx, EntryFromEvent(eventID, evt))
	})
}

// MemoryStore keeps history in process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64][]Entry
	seen    map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[int64][]Entry),
		seen:    make(map[string]bool),
	}
}

func (s *MemoryStore) Record(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.EventID != "" && s.seen[entry.EventID] {
		return nil
	}
	s.seen[entry.EventID] = true
	s.entries[entry.ReservationID] = append(s.entries[entry.ReservationID], entry)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, reservationID int64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]Entry(nil), s.entries[reservationID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}
