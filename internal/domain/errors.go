package domain

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a caller passed malformed data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyResolved indicates a signal's result was already set.
	ErrAlreadyResolved = errors.New("signal already resolved")

	// ErrLockHeld indicates a distributed lock is held by another party.
	ErrLockHeld = errors.New("lock held")
)
