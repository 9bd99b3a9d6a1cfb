package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryOutbox is an in-process Store used when no database is configured.
type MemoryOutbox struct {
	mu        sync.Mutex
	entries   []OutboxEntry
	delivered map[uuid.UUID]bool
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{delivered: make(map[uuid.UUID]bool)}
}

// Append records evt for later delivery.
func (o *MemoryOutbox) Append(aggregateID string, evt CanonicalEvent) (OutboxEntry, error) {
	entry, err := newEntry(aggregateID, evt)
	if err != nil {
		return OutboxEntry{}, err
	}
	o.mu.Lock()
	o.entries = append(o.entries, entry)
	o.mu.Unlock()
	return entry, nil
}

func (o *MemoryOutbox) FetchPending(ctx context.Context, limit int32) ([]OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []OutboxEntry
	for _, e := range o.entries {
		if o.delivered[e.ID] {
			continue
		}
		out = append(out, e)
		if limit > 0 && int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (o *MemoryOutbox) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.delivered[id] {
		return false, nil
	}
	for _, e := range o.entries {
		if e.ID == id {
			o.delivered[id] = true
			return true, nil
		}
	}
	return false, nil
}

// Pending counts undelivered entries.
func (o *MemoryOutbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries) - len(o.delivered)
}
