// Package common defines shared constants and sentinel errors used across
// server and client layers of voternet. Callers should use errors.Is to
// match these values; services wrap them with a human-readable reason.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Domain errors. ErrUnauthorized means the actor's role is insufficient,
	// ErrForbidden means the role is fine but a business rule blocks the action.
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("not authorized")
	ErrForbidden     = errors.New("forbidden")
	ErrStateConflict = errors.New("state conflict")
	ErrConflict      = errors.New("conflict")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
