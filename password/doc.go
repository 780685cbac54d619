// Package password implements password hashing and verification with Argon2id defaults.
//
// # Stored representation
//
// Every stored hash is scheme-tagged so verification dispatches on the stored
// value alone, never on ambient flags:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>   current scheme
//	$2a$... / $2b$... / $2y$...                                    bcrypt, read-compat
//	{SHA1}<hex>                                                    legacy unsalted, read-only
//
// New hashes are always Argon2id. The bcrypt and legacy schemes exist so that
// records migrated from older systems keep verifying; [Hasher.NeedsRehash]
// returns true for them (and for Argon2id hashes with weaker-than-configured
// parameters) so callers can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// reuse history) belongs to the caller.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other authcore package.
//   - Produce new hashes in a deprecated scheme.
package password
