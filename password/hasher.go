package password

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Scheme names the hash algorithm a stored representation was produced with.
type Scheme string

const (
	// SchemeArgon2id is the only scheme used for new hashes.
	SchemeArgon2id Scheme = "argon2id"
	// SchemeBcrypt is supported for reads of migrated records.
	SchemeBcrypt Scheme = "bcrypt"
	// SchemeLegacySHA1 is an unsalted digest inherited from the oldest
	// records. Read-only, never produced.
	SchemeLegacySHA1 Scheme = "legacy-sha1"
)

const legacySHA1Prefix = "{SHA1}"

// ErrUnknownScheme is returned when a stored hash carries no recognized tag.
var ErrUnknownScheme = errors.New("unknown password scheme")

// ErrEmptyPassword is returned by Hash for an empty plaintext.
var ErrEmptyPassword = errors.New("empty password")

// Hasher produces Argon2id hashes and verifies plaintexts against any
// supported stored scheme.
type Hasher struct {
	config Config
}

// NewHasher validates the Argon2id parameters and returns a Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Hasher{config: cfg}, nil
}

// SchemeOf inspects a stored representation and reports its scheme.
func SchemeOf(stored string) (Scheme, error) {
	switch {
	case strings.HasPrefix(stored, argon2Prefix):
		return SchemeArgon2id, nil
	case strings.HasPrefix(stored, "$2a$"),
		strings.HasPrefix(stored, "$2b$"),
		strings.HasPrefix(stored, "$2y$"):
		return SchemeBcrypt, nil
	case strings.HasPrefix(stored, legacySHA1Prefix):
		return SchemeLegacySHA1, nil
	}
	return "", ErrUnknownScheme
}

// Hash produces a new stored representation in the current scheme.
// Password bytes are used exactly as provided, no Unicode normalization.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	return hashArgon2(h.config, plaintext)
}

// Verify reports whether plaintext matches the stored representation,
// dispatching on the stored scheme tag.
func (h *Hasher) Verify(plaintext, stored string) (bool, error) {
	scheme, err := SchemeOf(stored)
	if err != nil {
		return false, err
	}

	switch scheme {
	case SchemeArgon2id:
		return verifyArgon2(plaintext, stored)
	case SchemeBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	case SchemeLegacySHA1:
		want, err := hex.DecodeString(strings.TrimPrefix(stored, legacySHA1Prefix))
		if err != nil || len(want) != sha1.Size {
			return false, errors.New("invalid legacy digest")
		}
		got := sha1.Sum([]byte(plaintext))
		return subtle.ConstantTimeCompare(got[:], want) == 1, nil
	}
	return false, ErrUnknownScheme
}

// NeedsRehash reports whether a successful verification should be followed
// by re-hashing under the current scheme and parameters. Deprecated
// schemes always need a rehash.
func (h *Hasher) NeedsRehash(stored string) (bool, error) {
	scheme, err := SchemeOf(stored)
	if err != nil {
		return false, err
	}
	if scheme != SchemeArgon2id {
		return true, nil
	}
	return argon2NeedsRehash(h.config, stored)
}
