package authcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eprintd/authcore/authz"
	"github.com/eprintd/authcore/credstore"
	"github.com/eprintd/authcore/password"
	"github.com/eprintd/authcore/taxonomy"
)

// fastPassword keeps Argon2id at the parameter floor so tests stay quick.
var fastPassword = password.Config{
	Memory:      8192,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *credstore.Memory) {
	t.Helper()
	hasher, err := password.NewHasher(fastPassword)
	require.NoError(t, err)
	store := credstore.NewMemory()
	auth, err := NewAuthenticator(store, hasher)
	require.NoError(t, err)
	return auth, store
}

func register(t *testing.T, auth *Authenticator) string {
	t.Helper()
	user, err := auth.RegisterAccount(context.Background(), Registration{
		Username: "jqpublic",
		Email:    "jq@example.edu",
		Password: "Secret123",
		Forename: "Jane",
		Surname:  "Public",
	})
	require.NoError(t, err)
	return user.ID
}

func TestRegisterThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t)
	userID := register(t, auth)

	user, _, err := auth.Authenticate(ctx, "jq@example.edu", "Secret123")
	require.NoError(t, err)
	require.Equal(t, userID, user.ID)
	require.Equal(t, "Jane Public", user.Name.String())

	// The primary nickname works as an identifier too.
	user, _, err = auth.Authenticate(ctx, "jqpublic", "Secret123")
	require.NoError(t, err)
	require.Equal(t, userID, user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t)
	register(t, auth)

	_, _, err := auth.Authenticate(ctx, "jq@example.edu", "Secret124")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAuthenticateUnknownIdentifier(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t)
	register(t, auth)

	_, _, err := auth.Authenticate(ctx, "ghost@example.edu", "Secret123")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAuthenticateEmptyCredentials(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t)
	register(t, auth)

	_, _, err := auth.Authenticate(ctx, "", "Secret123")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	_, _, err = auth.Authenticate(ctx, "jq@example.edu", "")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestAuthenticateStatusGate(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		flags authz.AccountFlags
		ok    bool
	}{
		{"approved", authz.AccountFlags{Approved: true}, true},
		{"unapproved", authz.AccountFlags{}, false},
		{"deleted", authz.AccountFlags{Approved: true, Deleted: true}, false},
		{"banned", authz.AccountFlags{Approved: true, Banned: true}, false},
		{"deleted and banned", authz.AccountFlags{Approved: true, Deleted: true, Banned: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth, store := newTestAuthenticator(t)
			userID := register(t, auth)
			require.NoError(t, store.SetFlags(userID, tc.flags))

			_, _, err := auth.Authenticate(ctx, "jq@example.edu", "Secret123")
			if tc.ok {
				require.NoError(t, err)
			} else {
				// The correct password still fails on a blocked account,
				// with the same opaque error as a wrong password.
				require.ErrorIs(t, err, ErrAuthenticationFailed)
			}
		})
	}
}

func TestAuthenticateComputesAuthorizations(t *testing.T) {
	ctx := context.Background()
	auth, store := newTestAuthenticator(t)
	userID := register(t, auth)

	cat := taxonomy.Category{Archive: "math", SubjectClass: "NT"}
	require.NoError(t, store.AddEndorsement(userID, authz.Endorsement{
		Category: cat, Points: 5, Type: authz.TypeUser, Valid: true,
	}))
	require.NoError(t, store.AddEndorsement(userID, authz.Endorsement{
		Category: cat, Points: -3, Type: authz.TypeAdmin, Valid: true,
	}))

	_, auths, err := auth.Authenticate(ctx, "jq@example.edu", "Secret123")
	require.NoError(t, err)
	require.Equal(t, 2, auths.Points(cat))
	require.True(t, auths.EndorsedFor(cat))
	require.False(t, auths.EndorsedFor(taxonomy.Category{Archive: "math", SubjectClass: "AG"}))
}

func TestAuthorizationsForRecomputes(t *testing.T) {
	ctx := context.Background()
	auth, store := newTestAuthenticator(t)
	userID := register(t, auth)

	cat := taxonomy.Category{Archive: "hep-th"}
	before, err := auth.AuthorizationsFor(ctx, userID)
	require.NoError(t, err)
	require.False(t, before.EndorsedFor(cat))

	require.NoError(t, store.AddEndorsement(userID, authz.Endorsement{
		Category: cat, Points: 4, Type: authz.TypeUser, Valid: true,
	}))

	after, err := auth.AuthorizationsFor(ctx, userID)
	require.NoError(t, err)
	require.True(t, after.EndorsedFor(cat))
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t)
	register(t, auth)

	_, err := auth.RegisterAccount(ctx, Registration{
		Username: "someoneelse",
		Email:    "jq@example.edu",
		Password: "AnotherPw1",
	})
	require.ErrorIs(t, err, ErrDuplicateAccount)
}

func TestRegisterMissingFields(t *testing.T) {
	ctx := context.Background()
	auth, _ := newTestAuthenticator(t)

	_, err := auth.RegisterAccount(ctx, Registration{Email: "jq@example.edu", Password: "pw123456"})
	require.ErrorIs(t, err, ErrInvalidRegistration)
	_, err = auth.RegisterAccount(ctx, Registration{Username: "jqpublic", Password: "pw123456"})
	require.ErrorIs(t, err, ErrInvalidRegistration)
}

func TestStoreErrorPropagates(t *testing.T) {
	ctx := context.Background()
	hasher, err := password.NewHasher(fastPassword)
	require.NoError(t, err)
	auth, err := NewAuthenticator(failingStore{}, hasher)
	require.NoError(t, err)

	// Transient store faults are not collapsed into the opaque error.
	_, _, err = auth.Authenticate(ctx, "jq@example.edu", "Secret123")
	require.ErrorIs(t, err, credstore.ErrUnavailable)
	require.NotErrorIs(t, err, ErrAuthenticationFailed)
}

type failingStore struct{}

func (failingStore) FindAccountByIdentifier(context.Context, string) (*credstore.AccountRecord, error) {
	return nil, credstore.ErrUnavailable
}

func (failingStore) FindAccountByID(context.Context, string) (*credstore.AccountRecord, error) {
	return nil, credstore.ErrUnavailable
}

func (failingStore) FindProfile(context.Context, string) (*credstore.ProfileRecord, error) {
	return nil, credstore.ErrUnavailable
}

func (failingStore) FindEndorsements(context.Context, string) ([]authz.Endorsement, error) {
	return nil, credstore.ErrUnavailable
}

func (failingStore) CreateAccount(context.Context, credstore.NewAccount) (*credstore.AccountRecord, error) {
	return nil, credstore.ErrUnavailable
}
