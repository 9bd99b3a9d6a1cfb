package auth

import "errors"

var (
	// ErrInvalidEmail is returned when the registration email is malformed
	ErrInvalidEmail = errors.New("a valid email address is required")

	// ErrWeakPassword is returned when the password is too short
	ErrWeakPassword = errors.New("password must be at least 8 characters")

	// ErrEmailAlreadyRegistered is returned when the email is taken
	ErrEmailAlreadyRegistered = errors.New("this email address is already registered")

	// ErrInvalidCredentials is returned for any failed login
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when a user lookup misses
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken is returned when a token fails verification
	ErrInvalidToken = errors.New("invalid token")
)
