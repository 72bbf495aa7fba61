package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrFormClosed is returned when the event no longer accepts registrations.
	ErrFormClosed = errors.New("tui: registration closed")
	// ErrTooManyAttempts stops a fill loop that keeps failing validation or
	// submission.
	ErrTooManyAttempts = errors.New("tui: too many attempts")
)
