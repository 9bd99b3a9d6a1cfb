package events

import "time"

const (
	TypeReservationConfirmed     = "reservation.confirmed.v1"
	TypeReservationCanceled      = "reservation.canceled.v1"
	TypeReservationStatusChanged = "reservation.status_changed.v1"
)

// ReservationEventV1 is the payload of every reservation lifecycle event.
type ReservationEventV1 struct {
	Kind          string    `json:"-"`
	ReservationID int64     `json:"reservation_id"`
	TimeSlotID    int64     `json:"time_slot_id"`
	UserID        int64     `json:"user_id"`
	UserEmail     string    `json:"user_email,omitempty"`
	DoctorID      int64     `json:"doctor_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time,omitempty"`
	Name          string    `json:"name"`
	FromStatus    string    `json:"from_status,omitempty"`
	Status        string    `json:"status"`
	Actor         string    `json:"actor"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventType reports the versioned type the event is stored under.
func (e ReservationEventV1) EventType() string {
	return e.Kind
}

// IsReservationEvent reports whether t is one of the reservation types.
func IsReservationEvent(t string) bool {
	switch t {
	case TypeReservationConfirmed, TypeReservationCanceled, TypeReservationStatusChanged:
		return true
	}
	return false
}
