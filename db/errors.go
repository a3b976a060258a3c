package db

import "errors"

var (
	// ErrStoreUnavailable is returned when the database cannot be opened or has been closed
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a referenced record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidSender is returned when a message sender is not "user" or "ai"
	ErrInvalidSender = errors.New("invalid sender")

	// ErrInvalidRecord is returned when a record fails validation before a write
	ErrInvalidRecord = errors.New("invalid record")
)
