// Package common defines shared constants and sentinel errors used across
// client and server layers of GeoCapsule. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound        = errors.New("not found")
	ErrDuplicateRecord = errors.New("duplicate record")

	// Service-level errors (generic/internal flow control).
	ErrInternal        = errors.New("internal error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Account errors.
	ErrLoginAlreadyExists     = errors.New("login already exists")
	ErrInvalidLoginOrPassword = errors.New("invalid login/password")
)
