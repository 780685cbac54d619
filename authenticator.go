package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eprintd/authcore/authz"
	"github.com/eprintd/authcore/credstore"
	"github.com/eprintd/authcore/identity"
	"github.com/eprintd/authcore/internal/audit"
	"github.com/eprintd/authcore/logging"
	"github.com/eprintd/authcore/password"
)

// Authenticator verifies credentials and assembles the authenticated
// user's capability snapshot. It reads the credential store and never
// writes to it, except through [Authenticator.RegisterAccount].
type Authenticator struct {
	store  credstore.Store
	hasher *password.Hasher
	audit  *audit.Dispatcher
	log    logging.Logger

	// decoy is verified on the unknown-identifier and status-blocked
	// paths so those failures cost roughly the same as a wrong password.
	decoy string
}

// AuthenticatorOption customizes an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) AuthenticatorOption {
	return func(a *Authenticator) { a.log = l }
}

// WithAudit attaches an audit dispatcher.
func WithAudit(d *audit.Dispatcher) AuthenticatorOption {
	return func(a *Authenticator) { a.audit = d }
}

// NewAuthenticator binds an Authenticator to a credential store and a
// password hasher.
func NewAuthenticator(store credstore.Store, hasher *password.Hasher, opts ...AuthenticatorOption) (*Authenticator, error) {
	if store == nil || hasher == nil {
		return nil, fmt.Errorf("%w: nil store or hasher", ErrConfiguration)
	}

	decoy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	a := &Authenticator{
		store:  store,
		hasher: hasher,
		log:    logging.Nop{},
		decoy:  decoy,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Authenticate resolves an email or username plus password into the user
// identity and its capability snapshot.
//
// Status flags are checked before the password; the account must be
// approved and neither deleted nor banned. Every failure mode collapses
// into ErrAuthenticationFailed, and the blocked paths still burn one hash
// verification, so neither the error nor the response time reveals which
// condition fired. Transient store failures propagate unchanged.
func (a *Authenticator) Authenticate(ctx context.Context, identifier, plaintext string) (*identity.User, authz.Authorizations, error) {
	fail := func(reason string) (*identity.User, authz.Authorizations, error) {
		a.log.Debug(ctx, "authentication failed", "reason", reason)
		a.emitLogin(ctx, "", false, reason)
		return nil, authz.Authorizations{}, ErrAuthenticationFailed
	}

	if identifier == "" || plaintext == "" {
		_, _ = a.hasher.Verify(plaintext, a.decoy)
		return fail("empty_credentials")
	}

	acct, err := a.store.FindAccountByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			_, _ = a.hasher.Verify(plaintext, a.decoy)
			return fail("unknown_identifier")
		}
		return nil, authz.Authorizations{}, fmt.Errorf("lookup account: %w", err)
	}

	if !acct.Flags.Approved || acct.Flags.Deleted || acct.Flags.Banned {
		_, _ = a.hasher.Verify(plaintext, a.decoy)
		return fail("status_blocked")
	}

	ok, err := a.hasher.Verify(plaintext, acct.PasswordHash)
	if err != nil {
		return nil, authz.Authorizations{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return fail("bad_password")
	}

	user, auths, err := a.assemble(ctx, acct)
	if err != nil {
		return nil, authz.Authorizations{}, err
	}

	a.log.Info(ctx, "authentication succeeded", "user_id", user.ID)
	a.emitLogin(ctx, user.ID, true, "")
	return user, auths, nil
}

// AuthorizationsFor recomputes the capability snapshot for a known user,
// e.g. when refreshing a session without re-authenticating.
func (a *Authenticator) AuthorizationsFor(ctx context.Context, userID string) (authz.Authorizations, error) {
	acct, err := a.store.FindAccountByID(ctx, userID)
	if err != nil {
		return authz.Authorizations{}, fmt.Errorf("lookup account: %w", err)
	}
	endorsements, err := a.store.FindEndorsements(ctx, userID)
	if err != nil {
		return authz.Authorizations{}, fmt.Errorf("load endorsements: %w", err)
	}
	return authz.Compute(acct.Flags, endorsements), nil
}

// assemble loads the profile and endorsements for a verified account and
// builds the (User, Authorizations) pair.
func (a *Authenticator) assemble(ctx context.Context, acct *credstore.AccountRecord) (*identity.User, authz.Authorizations, error) {
	user := &identity.User{
		ID:       acct.ID,
		Username: acct.Username,
		Email:    acct.Email,
		Verified: acct.Flags.EmailVerified,
	}

	profile, err := a.store.FindProfile(ctx, acct.ID)
	switch {
	case err == nil:
		user.Name = identity.Name{
			Forename: profile.Forename,
			Surname:  profile.Surname,
			Suffix:   profile.Suffix,
		}
	case errors.Is(err, credstore.ErrNotFound):
		// Accounts migrated without a profile row authenticate with an
		// empty name rather than failing.
	default:
		return nil, authz.Authorizations{}, fmt.Errorf("load profile: %w", err)
	}

	endorsements, err := a.store.FindEndorsements(ctx, acct.ID)
	if err != nil {
		return nil, authz.Authorizations{}, fmt.Errorf("load endorsements: %w", err)
	}

	return user, authz.Compute(acct.Flags, endorsements), nil
}

// Registration is the input to RegisterAccount.
type Registration struct {
	Username    string
	Email       string
	Password    string
	Forename    string
	Surname     string
	Suffix      string
	Affiliation string
	Country     string
}

// RegisterAccount hashes the password under the current scheme and writes
// the account, nickname, password, and profile records in one store
// transaction. New accounts start approved, unverified, and unbanned.
func (a *Authenticator) RegisterAccount(ctx context.Context, reg Registration) (*identity.User, error) {
	if reg.Username == "" || reg.Email == "" {
		return nil, fmt.Errorf("%w: username and email are required", ErrInvalidRegistration)
	}

	hash, err := a.hasher.Hash(reg.Password)
	if err != nil {
		return nil, err
	}

	rec, err := a.store.CreateAccount(ctx, credstore.NewAccount{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		Flags:        authz.AccountFlags{Approved: true},
		Profile: credstore.ProfileRecord{
			Forename:    reg.Forename,
			Surname:     reg.Surname,
			Suffix:      reg.Suffix,
			Affiliation: reg.Affiliation,
			Country:     reg.Country,
		},
	})
	if err != nil {
		if errors.Is(err, credstore.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateAccount, err)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	a.log.Info(ctx, "account registered", "user_id", rec.ID)
	a.emit(ctx, audit.EventRegister, rec.ID, true, "")

	return &identity.User{
		ID:       rec.ID,
		Username: rec.Username,
		Email:    rec.Email,
		Name:     identity.Name{Forename: reg.Forename, Surname: reg.Surname, Suffix: reg.Suffix},
		Verified: rec.Flags.EmailVerified,
	}, nil
}

func (a *Authenticator) emitLogin(ctx context.Context, userID string, success bool, reason string) {
	a.emit(ctx, audit.EventLogin, userID, success, reason)
}

func (a *Authenticator) emit(ctx context.Context, eventType, userID string, success bool, reason string) {
	if a.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Success:   success,
	}
	if reason != "" {
		event.Metadata = map[string]string{"reason": reason}
	}
	a.audit.Emit(ctx, event)
}
