package authcore

import (
	"errors"

	"github.com/eprintd/authcore/session"
)

var (
	// ErrAuthenticationFailed covers unknown identifiers, wrong passwords,
	// and status-blocked accounts alike. The conditions are deliberately
	// not distinguishable past this boundary, to prevent account
	// enumeration.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrConfiguration is returned for startup-time configuration faults:
	// a missing secret, a malformed duration, an empty store URI. Never
	// returned per-request.
	ErrConfiguration = errors.New("configuration error")

	// ErrDuplicateAccount is returned by RegisterAccount when the email or
	// username is already registered.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInvalidRegistration is returned by RegisterAccount for requests
	// missing required fields.
	ErrInvalidRegistration = errors.New("invalid registration request")
)

// Session failures are defined next to the session manager; the aliases
// keep the whole error taxonomy importable from one place.
var (
	ErrSessionExpired     = session.ErrExpired
	ErrSessionInvalidated = session.ErrInvalidated
	ErrSessionUnknown     = session.ErrUnknown
	ErrSessionCorrupted   = session.ErrCorrupted
)
