// Package authcore is the authentication and session-authorization core
// for a scholarly e-print user registry.
//
// Given credentials, the [Authenticator] verifies identity against the
// credential store, gates on account status flags, and assembles the
// user's capability set from endorsement records. The session package
// turns that result into a signed, tamper-evident session token and
// manages the session lifecycle.
//
// The package is request-scoped and safe for concurrent use: every
// operation runs to completion within its caller's request, there are no
// background sweeps, and expiry is enforced lazily at session load.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes the [Authenticator],
// [Config], and the error taxonomy. Category data lives in taxonomy,
// capability computation in authz, hashing in password, session
// lifecycle in session, and persistence behind the credstore interfaces.
//
// # What this package must NOT do
//
//   - Distinguish unknown-user, bad-password, and status-blocked failures
//     to callers; all three are [ErrAuthenticationFailed].
//   - Retry store operations; transient failures propagate to the caller.
//   - Mutate account records during authentication (reads only).
package authcore
