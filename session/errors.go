package session

import (
	"errors"
	"fmt"
)

var (
	// ErrExpired is returned when a structurally valid token names a
	// session whose lifetime has elapsed.
	ErrExpired = errors.New("session expired")

	// ErrInvalidated is returned for sessions that were explicitly
	// invalidated. It matches ErrExpired under errors.Is so callers that
	// only distinguish live from dead sessions need a single check.
	ErrInvalidated = fmt.Errorf("%w: explicitly invalidated", ErrExpired)

	// ErrUnknown is returned when the integrity tag verifies but no server
	// record matches the session id: the store restarted, or the id was
	// fabricated under a leaked secret.
	ErrUnknown = errors.New("unknown session")

	// ErrCorrupted is returned for malformed tokens and integrity tag
	// mismatches. Treat as a tampering signal.
	ErrCorrupted = errors.New("corrupted session token")

	// ErrBadConfig is returned at construction for a missing secret or a
	// non-positive duration. Never returned per-request.
	ErrBadConfig = errors.New("invalid session configuration")

	// ErrStoreUnavailable wraps transport failures from the session store.
	ErrStoreUnavailable = errors.New("session store unavailable")
)
