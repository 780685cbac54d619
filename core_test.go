package authcore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eprintd/authcore/credstore"
	"github.com/eprintd/authcore/internal/audit"
	"github.com/eprintd/authcore/session"
)

func newTestCore(t *testing.T, opts ...CoreOption) *Core {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Password = fastPassword

	core, err := New(cfg, credstore.NewMemory(), session.NewMemoryStore(), opts...)
	require.NoError(t, err)
	t.Cleanup(core.Close)
	return core
}

func TestLoginSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	core := newTestCore(t)

	_, err := core.Auth.RegisterAccount(ctx, Registration{
		Username: "jqpublic",
		Email:    "jq@example.edu",
		Password: "Secret123",
		Forename: "Jane",
		Surname:  "Public",
	})
	require.NoError(t, err)

	user, auths, err := core.Auth.Authenticate(ctx, "jq@example.edu", "Secret123")
	require.NoError(t, err)

	s, err := core.Sessions.Create(ctx, *user, auths, "203.0.113.9", "client.example.org")
	require.NoError(t, err)
	token, err := core.Sessions.Cookie(s)
	require.NoError(t, err)

	loaded, err := core.Sessions.Load(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, loaded.User.ID)
	require.Equal(t, "203.0.113.9", loaded.ClientIP)

	require.NoError(t, core.Sessions.Invalidate(ctx, token))
	_, err = core.Sessions.Load(ctx, token)
	require.ErrorIs(t, err, ErrSessionInvalidated)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig() // secret left empty on purpose
	_, err := New(cfg, credstore.NewMemory(), session.NewMemoryStore())
	require.ErrorIs(t, err, ErrConfiguration)

	cfg.Session.Secret = "key"
	cfg.Session.Duration = 0
	_, err = New(cfg, credstore.NewMemory(), session.NewMemoryStore())
	require.ErrorIs(t, err, ErrConfiguration)

	cfg = DefaultConfig()
	cfg.Session.Secret = "key"
	cfg.Session.Format = "carrier-pigeon"
	_, err = New(cfg, credstore.NewMemory(), session.NewMemoryStore())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestValidateStoreURI(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Secret = "key"

	// Empty is fine; injected stores need no URI.
	require.NoError(t, cfg.Validate())

	cfg.Store.URI = "postgres://registry:pw@localhost:5432/registry"
	require.NoError(t, cfg.Validate())

	for _, uri := range []string{
		"://not a uri at all%%%",
		"plain-hostname-no-scheme",
	} {
		cfg.Store.URI = uri
		require.ErrorIs(t, cfg.Validate(), ErrConfiguration, "uri %q", uri)
	}
}

func TestNewWithPostgresRequiresURI(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Secret = "key"
	cfg.Password = fastPassword

	_, err := NewWithPostgres(context.Background(), cfg, session.NewMemoryStore())
	require.ErrorIs(t, err, ErrConfiguration)

	cfg.Store.URI = "://not a uri at all%%%"
	_, err = NewWithPostgres(context.Background(), cfg, session.NewMemoryStore())
	require.ErrorIs(t, err, ErrConfiguration)
}

// captureSink records every event for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *captureSink) Emit(_ context.Context, event audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) byType(eventType string) []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	sink := &captureSink{}

	cfg := DefaultConfig()
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Password = fastPassword
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false

	core, err := New(cfg, credstore.NewMemory(), session.NewMemoryStore(), WithAuditSink(sink))
	require.NoError(t, err)

	_, err = core.Auth.RegisterAccount(ctx, Registration{
		Username: "jqpublic", Email: "jq@example.edu", Password: "Secret123",
	})
	require.NoError(t, err)

	user, auths, err := core.Auth.Authenticate(ctx, "jq@example.edu", "Secret123")
	require.NoError(t, err)
	_, _, err = core.Auth.Authenticate(ctx, "jq@example.edu", "wrong")
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	s, err := core.Sessions.Create(ctx, *user, auths, "", "")
	require.NoError(t, err)
	require.NoError(t, core.Sessions.InvalidateID(ctx, s.ID))

	// Close drains the dispatcher so every emitted event reaches the sink.
	core.Close()

	logins := sink.byType(audit.EventLogin)
	require.Len(t, logins, 2)
	require.True(t, logins[0].Success)
	require.False(t, logins[1].Success)
	// The failure reason is audit-only; the caller saw the opaque error.
	require.Equal(t, "bad_password", logins[1].Metadata["reason"])
	require.False(t, logins[1].Timestamp.IsZero())

	require.Len(t, sink.byType(audit.EventRegister), 1)
	require.Len(t, sink.byType(audit.EventSessionCreate), 1)
	require.Len(t, sink.byType(audit.EventSessionInvalidate), 1)
}

func TestDispatcherDisabledByDefault(t *testing.T) {
	core := newTestCore(t)
	require.Nil(t, core.dispatcher)
	// Emitting through a nil dispatcher is a no-op, not a panic.
	ctx := context.Background()
	_, err := core.Auth.RegisterAccount(ctx, Registration{
		Username: "jqpublic", Email: "jq@example.edu", Password: "Secret123",
	})
	require.NoError(t, err)
}
