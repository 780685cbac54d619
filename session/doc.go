// Package session creates, serializes, loads, and invalidates signed
// sessions for authenticated users.
//
// # Token model
//
// The client holds only an opaque cookie token: a session id bound to an
// HMAC tag (compact format) or an HS256 JWT carrying the id. The server-side
// [Store] is the authority for session state; the token is a locator plus
// integrity proof, never a source of truth. Expiry is checked lazily at load
// time, not by a background sweep.
//
// # Binary encoding
//
// Sessions are persisted as a compact binary blob. Byte 1 of the blob is
// reserved for the invalidation marker so the Redis store can flip it
// atomically in place without a read-modify-write race against concurrent
// loads.
//
// # Architecture boundaries
//
// This package owns the [Manager], the [Store] implementations, and the
// cookie codecs. It does NOT verify passwords or compute authorizations;
// those belong to the root package and authz.
//
// # What this package must NOT do
//
//   - Import the root authcore package (no upward imports).
//   - Emit a token without an integrity tag, whatever the configuration.
//   - Resurrect a session after it expired or was invalidated.
package session
