package departments

import "errors"

var (
	// ErrDepartmentNotFound is returned when a department does not exist
	ErrDepartmentNotFound = errors.New("department not found")

	// ErrDepartmentInUse is returned when deleting a department that still has doctors
	ErrDepartmentInUse = errors.New("department still has doctors")

	// ErrInvalidName is returned for an empty or overlong name
	ErrInvalidName = errors.New("name is required and must be at most 100 characters")
)
