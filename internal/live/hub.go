// Package live pushes reservation changes to connected admin screens.
package live

import (
	"sync"
	"time"

	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Message is one change notification sent over the admin feed.
type Message struct {
	Type          string    `json:"type"`
	ReservationID int64     `json:"reservationId"`
	Status        string    `json:"status"`
	TimeSlotID    int64     `json:"timeSlotId"`
	At            time.Time `json:"at"`
}

const defaultBuffer = 16

// Subscriber receives messages until it is unsubscribed or dropped.
type Subscriber struct {
	ch   chan Message
	once sync.Once
}

// C returns the receive channel. It is closed when the subscriber is removed.
func (s *Subscriber) C() <-chan Message {
	return s.ch
}

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub fans messages out to subscribers without blocking the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	buffer int
	logger *logging.Logger
}

// NewHub creates a hub whose subscribers buffer up to buffer messages.
func NewHub(buffer int, logger *logging.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan Message, h.buffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
	sub.close()
}

// Publish delivers msg to every subscriber. A subscriber whose buffer is
// full is dropped.
func (h *Hub) Publish(msg Message) {
	if h == nil {
		return
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- msg:
		default:
			delete(h.subs, sub)
			sub.close()
			h.logger.Warn("live: dropping slow subscriber", "type", msg.Type)
		}
	}
}

// Count reports the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
