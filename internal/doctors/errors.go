package doctors

import "errors"

var (
	ErrDoctorNotFound        = errors.New("doctor not found")
	ErrInvalidName           = errors.New("name is required and must be at most 100 characters")
	ErrInvalidSpecialization = errors.New("specialization must be at most 100 characters")
	ErrDepartmentRequired    = errors.New("departmentId is required")
	ErrUnknownDepartment     = errors.New("department not found")
)
