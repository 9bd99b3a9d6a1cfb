package departments

import (
	"strings"
	"unicode/utf8"
)

const maxNameLength = 100

// Department groups doctors by medical specialty.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateRequest is the body of POST /departments.
type CreateRequest struct {
	Name string `json:"name"`
}

// UpdateRequest is the body of PUT /departments/{id}. Omitted fields are kept.
type UpdateRequest struct {
	Name *string `json:"name"`
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
