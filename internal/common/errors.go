// Package common defines shared constants, sentinel errors and small helpers
// used across MailProof components. Callers should use errors.Is to match
// the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorValidation = errors.New("validation error")

	// Identity errors.
	ErrorInvalidIdentity = errors.New("invalid identity")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
