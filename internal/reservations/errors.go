package reservations

import "errors"

var (
	// ErrReservationNotFound is returned when a reservation id does not exist
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrAlreadyCanceled is returned when canceling a canceled reservation
	ErrAlreadyCanceled = errors.New("reservation is already canceled")

	// ErrInvalidTransition is returned for status moves the lifecycle forbids
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden is returned when a user touches someone else's reservation
	ErrForbidden = errors.New("reservation belongs to another user")

	// ErrHistoryUnavailable is returned when no history store is configured
	ErrHistoryUnavailable = errors.New("reservation history is not configured")

	ErrTimeSlotRequired = errors.New("timeSlotId is required")
	ErrInvalidName      = errors.New("name must be between 1 and 100 characters")
	ErrInvalidPhone     = errors.New("phoneNumber must contain 10 to 15 digits")
	ErrInvalidStatus    = errors.New("unknown reservation status")
	ErrInvalidFilter    = errors.New("invalid search filter")
)
