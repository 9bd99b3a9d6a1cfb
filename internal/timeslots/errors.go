package timeslots

import "errors"

var (
	// ErrTimeSlotNotFound is returned when a slot id does not exist
	ErrTimeSlotNotFound = errors.New("time slot not found")

	// ErrTimeSlotHasReservation is returned when an admin tries to change a
	// slot that an active reservation holds
	ErrTimeSlotHasReservation = errors.New("time slot has an active reservation")

	// ErrTimeSlotAlreadyTaken is returned when booking a slot that is not open
	ErrTimeSlotAlreadyTaken = errors.New("time slot is already taken")

	ErrInvalidDate     = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidRange    = errors.New("invalid date range")
	ErrInvalidWindow   = errors.New("invalid daily window or slot length")
	ErrDoctorRequired  = errors.New("doctorId is required")
	ErrUnknownDoctor   = errors.New("doctor not found")
	ErrInvalidWeekdays = errors.New("weekdays must be between 0 (Sunday) and 6 (Saturday)")
)
