package reservations

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wolfman30/clinic-reservation/internal/events"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusPending   Status = "PENDING"
	StatusCanceled  Status = "CANCELED"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	maxNameLength  = 100
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// ParseStatus accepts any case and the CANCELLED spelling.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CONFIRMED":
		return StatusConfirmed, nil
	case "PENDING":
		return StatusPending, nil
	case "CANCELED", "CANCELLED":
		return StatusCanceled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusPending, StatusCanceled},
}

// CanTransition reports whether an admin may move a reservation from one
// status to another. CANCELED is terminal.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Reservation is a user's hold on one time slot.
type Reservation struct {
	ID           int64      `json:"reservationId"`
	TimeSlotID   int64      `json:"timeSlotId"`
	UserID       int64      `json:"userId"`
	UserEmail    string     `json:"userEmail,omitempty"`
	DoctorID     int64      `json:"doctorId"`
	DepartmentID int64      `json:"departmentId"`
	Date         string     `json:"date"`
	StartTime    string     `json:"startTime"`
	EndTime      string     `json:"endTime"`
	Status       Status     `json:"status"`
	Name         string     `json:"name"`
	PhoneNumber  string     `json:"phoneNumber"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	RemindedAt   *time.Time `json:"-"`
}

// Active reports whether the reservation still holds its slot.
func (r *Reservation) Active() bool {
	return r.Status != StatusCanceled
}

// CreateRequest is the body of POST /reservations.
type CreateRequest struct {
	TimeSlotID  int64  `json:"timeSlotId"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// Normalize trims the name and reduces the phone number to digits.
func (r *CreateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.PhoneNumber = normalizePhone(r.PhoneNumber)
}

// Validate checks a normalized request.
func (r *CreateRequest) Validate() error {
	if r.TimeSlotID <= 0 {
		return ErrTimeSlotRequired
	}
	if n := utf8.RuneCountInString(r.Name); n == 0 || n > maxNameLength {
		return ErrInvalidName
	}
	if n := len(r.PhoneNumber); n < minPhoneDigits || n > maxPhoneDigits {
		return ErrInvalidPhone
	}
	for _, c := range r.PhoneNumber {
		if c < '0' || c > '9' {
			return ErrInvalidPhone
		}
	}
	return nil
}

func normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "+")
	return strings.NewReplacer("-", "", " ", "").Replace(raw)
}

// CreateParams is what the repository needs to book a slot.
type CreateParams struct {
	UserID      int64
	UserEmail   string
	TimeSlotID  int64
	Name        string
	PhoneNumber string
	Actor       string
}

// TransitionParams describes a status change. Guard runs against the locked
// row and aborts the change when it returns an error.
type TransitionParams struct {
	To        Status
	Actor     string
	EventType string
	Guard     func(current *Reservation) error
}

// StatusUpdateRequest is the body of PATCH /admin/reservations/{id}/status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// StatusResponse is returned by cancel and status updates.
type StatusResponse struct {
	ReservationID int64  `json:"reservationId"`
	Status        Status `json:"status"`
}

// Filter narrows searches. Zero values match everything; Limit 0 means no
// limit at the repository level.
type Filter struct {
	UserID       int64
	Statuses     []Status
	Date         string
	From         string
	To           string
	DoctorID     int64
	DepartmentID int64
	Name         string
	Limit        int
	Offset       int
}

// SearchResult is the admin search response.
type SearchResult struct {
	Reservations []*Reservation `json:"reservations"`
	Count        int            `json:"count"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
}

// AggregateID is the outbox aggregate key of a reservation.
func AggregateID(id int64) string {
	return fmt.Sprintf("reservation:%d", id)
}

func newEvent(kind string, r *Reservation, from Status, actor string, at time.Time) events.ReservationEventV1 {
	return events.ReservationEventV1{
		Kind:          kind,
		ReservationID: r.ID,
		TimeSlotID:    r.TimeSlotID,
		UserID:        r.UserID,
		UserEmail:     r.UserEmail,
		DoctorID:      r.DoctorID,
		Date:          r.Date,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Name:          r.Name,
		FromStatus:    string(from),
		Status:        string(r.Status),
		Actor:         actor,
		OccurredAt:    at.UTC(),
	}
}
