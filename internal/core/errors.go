package core

import "errors"

// Error taxonomy for table operations. Callers match with errors.Is; the
// message text of each sentinel is also what MapError keys on.
var (
	// ErrIndex is returned when a row or column index is outside the table.
	// The operation is a no-op.
	ErrIndex = errors.New("index out of range")

	// ErrInvariant is returned when an edit would leave the table without a
	// column or with ragged rows. The operation is refused.
	ErrInvariant = errors.New("table invariant violation")

	// ErrFormat is returned when imported data cannot be decoded as the
	// claimed format. The live table is never touched on this error.
	ErrFormat = errors.New("invalid format")

	// ErrGeneration is returned when the data-generation collaborator fails
	// or returns something other than an array of records.
	ErrGeneration = errors.New("generation failed")
)

// Session and service level errors.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrTooManySessions      = errors.New("too many active sessions")
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrTooManyGenerations   = errors.New("too many concurrent generations, please try again later")
	ErrGenerationDisabled   = errors.New("generation not configured")
	ErrFileTooLarge         = errors.New("file too large")
	ErrEmptyFile            = errors.New("empty file")
	ErrUnknownEdit          = errors.New("unknown edit operation")
)
