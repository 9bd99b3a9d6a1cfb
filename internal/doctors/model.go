package doctors

import (
	"strings"
	"unicode/utf8"
)

// Doctor is a practitioner who owns time slots.
type Doctor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	DepartmentID   int64  `json:"departmentId"`
	Specialization string `json:"specialization"`
}

// CreateRequest is the body of POST /doctors.
type CreateRequest struct {
	Name           string `json:"name"`
	DepartmentID   int64  `json:"departmentId"`
	Specialization string `json:"specialization"`
}

func (r *CreateRequest) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Specialization = strings.TrimSpace(r.Specialization)
	if r.Name == "" || utf8.RuneCountInString(r.Name) > 100 {
		return ErrInvalidName
	}
	if utf8.RuneCountInString(r.Specialization) > 100 {
		return ErrInvalidSpecialization
	}
	if r.DepartmentID <= 0 {
		return ErrDepartmentRequired
	}
	return nil
}
