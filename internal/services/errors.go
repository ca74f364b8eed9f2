package services

import "errors"

var (
	// ErrSelfSubscription is returned when a user targets their own profile.
	ErrSelfSubscription = errors.New("cannot subscribe to yourself")

	// ErrAlreadySubscribed is returned when the subscriber is already in the set.
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrInvalidCredentials covers both an unknown username and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingCredential is returned when no bearer token was supplied.
	ErrMissingCredential = errors.New("missing credential")

	// ErrInvalidToken is returned for malformed, mis-signed or expired tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrValidation marks input that failed validation. Use errors.Is.
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}
