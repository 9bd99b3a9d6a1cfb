package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Fanout runs every handler and joins their errors, so one failing consumer
// keeps the entry pending for all of them. Consumers must be idempotent.
type Fanout []DeliveryHandler

func (f Fanout) Handle(ctx context.Context, entry OutboxEntry) error {
	var errs []error
	for _, h := range f {
		if h == nil {
			continue
		}
		if err := h.Handle(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReservationHandler consumes decoded reservation events.
type ReservationHandler func(ctx context.Context, eventID string, evt ReservationEventV1) error

// ReservationEvents adapts h to DeliveryHandler. Entries of other types are
// acknowledged without calling h.
func ReservationEvents(h ReservationHandler) DeliveryHandler {
	return HandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		if !IsReservationEvent(entry.Type) {
			return nil
		}
		evt, err := DecodeReservationEvent(entry)
		if err != nil {
			return err
		}
		return h(ctx, entry.ID.String(), evt)
	})
}

// DecodeReservationEvent parses a reservation outbox payload.
func DecodeReservationEvent(entry OutboxEntry) (ReservationEventV1, error) {
	var evt ReservationEventV1
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		return ReservationEventV1{}, fmt.Errorf("events: decode %s: %w", entry.Type, err)
	}
	evt.Kind = entry.Type
	return evt, nil
}
