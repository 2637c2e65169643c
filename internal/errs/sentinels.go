// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service/client layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication (missing, invalid or expired credential).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary sign-in lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrPermissionDenied indicates an authenticated caller touching a path it does not own.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidArgument indicates a malformed path, record or field set.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists indicates a unique key (user or document id) is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotReady indicates the store handle or the identity is not available yet.
	ErrNotReady = errors.New("not ready: store or identity unavailable")

	// ErrListenerClosed indicates a live listener ended without the consumer releasing it.
	ErrListenerClosed = errors.New("listener closed")
)
