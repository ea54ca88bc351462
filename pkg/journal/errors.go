package journal

import "errors"

var (
	// ErrEntryNotFound is returned when no entry matches a command id.
	ErrEntryNotFound = errors.New("journal entry not found")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("database error")
)
