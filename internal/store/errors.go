package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// ErrAlreadyMember is returned by AddSubscriber when the id is already in the set.
var ErrAlreadyMember = errors.New("already a member")
