// Package credstore abstracts the persisted user registry: accounts,
// nicknames, profiles, password records, and endorsements.
//
// The authenticator only reads through the [Store] interface; writes go
// through [Store.CreateAccount], which must be atomic: a partially
// written account must never be observable by a concurrent lookup.
package credstore

import (
	"context"
	"errors"
	"time"

	"github.com/eprintd/authcore/authz"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned by CreateAccount when the email or username is
// already taken.
var ErrDuplicate = errors.New("duplicate account")

// ErrUnavailable wraps transport-level store failures. The core never
// retries; callers decide.
var ErrUnavailable = errors.New("credential store unavailable")

// AccountRecord is one row of the account table joined with its primary
// nickname and password record.
type AccountRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Flags        authz.AccountFlags
	JoinedAt     time.Time
}

// ProfileRecord carries the display identity attached to an account.
type ProfileRecord struct {
	UserID      string
	Forename    string
	Surname     string
	Suffix      string
	Affiliation string
	Country     string
	Rank        int
}

// NewAccount is the input to CreateAccount. All records are written in a
// single transaction.
type NewAccount struct {
	Username     string
	Email        string
	PasswordHash string
	Flags        authz.AccountFlags
	Profile      ProfileRecord
	Endorsements []authz.Endorsement
}

// Store is the credential repository interface implemented by [Postgres]
// and [Memory].
type Store interface {
	// FindAccountByIdentifier looks up an account by email or username.
	FindAccountByIdentifier(ctx context.Context, identifier string) (*AccountRecord, error)
	FindAccountByID(ctx context.Context, userID string) (*AccountRecord, error)
	FindProfile(ctx context.Context, userID string) (*ProfileRecord, error)
	FindEndorsements(ctx context.Context, userID string) ([]authz.Endorsement, error)

	// CreateAccount writes the account, nickname, password, profile, and
	// endorsement records atomically and returns the stored account.
	CreateAccount(ctx context.Context, in NewAccount) (*AccountRecord, error)
}
