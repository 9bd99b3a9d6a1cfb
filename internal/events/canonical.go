package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// CanonicalEvent represents a versioned domain event.
type CanonicalEvent interface {
	EventType() string
}

// Envelope captures transport metadata for events leaving the service.
type Envelope struct {
	EventID         uuid.UUID       `json:"event_id"`
	EventType       string          `json:"event_type"`
	Aggregate       string          `json:"aggregate"`
	TimestampMicros int64           `json:"timestamp"`
	Payload         json.RawMessage `json:"payload"`
}

var (
	errMissingAggregate = errors.New("events: aggregate is required")
	errNilEvent         = errors.New("events: canonical event required")
	nowFunc             = time.Now
)

// EnvelopeFromEntry wraps an outbox row for a downstream transport. The row
// id doubles as the event id so consumers can deduplicate redeliveries.
func EnvelopeFromEntry(entry OutboxEntry) Envelope {
	ts := entry.CreatedAt
	if ts.IsZero() {
		ts = nowFunc()
	}
	return Envelope{
		EventID:         entry.ID,
		EventType:       entry.Type,
		Aggregate:       entry.AggregateID,
		TimestampMicros: ts.UTC().UnixMicro(),
		Payload:         append([]byte(nil), entry.Payload...),
	}
}

func newEntry(aggregateID string, evt CanonicalEvent) (OutboxEntry, error) {
	if strings.TrimSpace(aggregateID) == "" {
		return OutboxEntry{}, errMissingAggregate
	}
	if evt == nil {
		return OutboxEntry{}, errNilEvent
	}
	eventType := strings.TrimSpace(evt.EventType())
	if eventType == "" {
		return OutboxEntry{}, fmt.Errorf("events: event type missing")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	return OutboxEntry{
		ID:          uuid.New(),
		AggregateID: strings.TrimSpace(aggregateID),
		Type:        eventType,
		Payload:     payload,
		CreatedAt:   nowFunc().UTC(),
	}, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AppendCanonicalEvent writes evt to the outbox through exec, which is
// normally the transaction that changed the aggregate.
func AppendCanonicalEvent(ctx context.Context, exec execer, aggregateID string, evt CanonicalEvent) (OutboxEntry, error) {
	if exec == nil {
		return OutboxEntry{}, fmt.Errorf("events: exec required")
	}
	entry, err := newEntry(aggregateID, evt)
	if err != nil {
		return OutboxEntry{}, err
	}
	query := `
		INSERT INTO outbox (id, aggregate_id, type, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := exec.Exec(ctx, query, entry.ID, entry.AggregateID, entry.Type, []byte(entry.Payload)); err != nil {
		return OutboxEntry{}, fmt.Errorf("events: append event: %w", err)
	}
	return entry, nil
}
