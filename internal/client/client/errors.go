package client

import (
	"errors"
	"strings"
)

// Sentinel errors mapping the failure taxonomy surfaced to the sync engine.
// Match with errors.Is; concrete causes are wrapped around them.
var (
	// ErrUnavailable covers network and timeout failures. Always retryable
	// on the next pass.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized covers credential failures; pass-fatal.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation means the server rejected the submitted fields. The row
	// stays dirty and the messages are surfaced to the caller.
	ErrValidation = errors.New("validation failed")

	// ErrConflict means the etag did not match the server's version. The
	// conflict is resolved by the reconciliation path, never silently
	// overwritten.
	ErrConflict = errors.New("version conflict")
)

// ValidationError carries the server's per-field messages alongside
// ErrValidation.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
