package session

import (
	"context"
	"fmt"
	"time"

	"github.com/eprintd/authcore/authz"
	"github.com/eprintd/authcore/identity"
	"github.com/eprintd/authcore/internal"
	"github.com/eprintd/authcore/internal/audit"
	"github.com/eprintd/authcore/logging"
)

// Config carries the session manager settings.
type Config struct {
	// Duration is the fixed session lifetime.
	Duration time.Duration
	// Secret keys the cookie integrity tag. Construction fails when it is
	// empty; there is no unauthenticated fallback.
	Secret []byte
	// Format selects the cookie token serialization. Defaults to
	// FormatCompact.
	Format TokenFormat
}

// Manager owns the session lifecycle: created, active, and the terminal
// expired/invalidated states. Sessions never leave a terminal state.
type Manager struct {
	store    Store
	codec    CookieCodec
	duration time.Duration
	now      func() time.Time
	audit    *audit.Dispatcher
	log      logging.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Tests use it to simulate expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithAudit attaches an audit dispatcher.
func WithAudit(d *audit.Dispatcher) Option {
	return func(m *Manager) { m.audit = d }
}

// NewManager validates the configuration and returns a Manager bound to
// the given store.
func NewManager(cfg Config, store Store, opts ...Option) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: empty signing secret", ErrBadConfig)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("%w: non-positive session duration", ErrBadConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil session store", ErrBadConfig)
	}

	codec, err := newCodec(cfg.Format, cfg.Secret)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:    store,
		codec:    codec,
		duration: cfg.Duration,
		now:      time.Now,
		log:      logging.Nop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create builds a session for an authenticated user, persists it, and
// returns it. The id is 128 bits of crypto/rand, never sequential.
func (m *Manager) Create(ctx context.Context, user identity.User, auths authz.Authorizations, clientIP, remoteHost string) (*Session, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := m.now().UTC().Truncate(time.Second)
	s := &Session{
		ID:             sid.String(),
		User:           user,
		Authorizations: auths,
		ClientIP:       clientIP,
		RemoteHost:     remoteHost,
		IssuedAt:       now,
		ExpiresAt:      now.Add(m.duration),
	}

	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}

	m.log.Debug(ctx, "session created", "session_id", s.ID, "user_id", user.ID)
	m.emit(ctx, audit.EventSessionCreate, s.ID, user.ID, clientIP, true, nil)
	return s, nil
}

// Cookie serializes the session into its opaque client-held token.
func (m *Manager) Cookie(s *Session) (string, error) {
	return m.codec.Encode(s)
}

// Load resolves a token back to its live session. ErrCorrupted covers tag
// or structure problems, ErrUnknown a missing record, and
// ErrExpired/ErrInvalidated the terminal states.
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	sid, err := m.codec.Decode(token)
	if err != nil {
		m.emit(ctx, audit.EventSessionLoad, "", "", "", false, err)
		return nil, err
	}

	s, err := m.store.Get(ctx, sid)
	if err != nil {
		m.emit(ctx, audit.EventSessionLoad, sid, "", "", false, err)
		return nil, err
	}

	if !m.now().Before(s.ExpiresAt) {
		// Lazy expiry: drop the record now rather than waiting for a sweep.
		_ = m.store.Delete(ctx, sid)
		m.emit(ctx, audit.EventSessionLoad, sid, s.User.ID, "", false, ErrExpired)
		return nil, ErrExpired
	}
	if s.Invalidated {
		m.emit(ctx, audit.EventSessionLoad, sid, s.User.ID, "", false, ErrInvalidated)
		return nil, ErrInvalidated
	}

	m.emit(ctx, audit.EventSessionLoad, sid, s.User.ID, "", true, nil)
	return s, nil
}

// Invalidate decodes the token and marks its session invalid.
func (m *Manager) Invalidate(ctx context.Context, token string) error {
	sid, err := m.codec.Decode(token)
	if err != nil {
		return err
	}
	return m.InvalidateID(ctx, sid)
}

// InvalidateID marks a session invalid by id. Re-invalidating an
// already-invalid session is a no-op; an id with no record at all is
// ErrUnknown.
func (m *Manager) InvalidateID(ctx context.Context, sessionID string) error {
	found, err := m.store.MarkInvalid(ctx, sessionID)
	if err != nil {
		return err
	}
	if !found {
		return ErrUnknown
	}

	m.log.Debug(ctx, "session invalidated", "session_id", sessionID)
	m.emit(ctx, audit.EventSessionInvalidate, sessionID, "", "", true, nil)
	return nil
}

func (m *Manager) emit(ctx context.Context, eventType, sessionID, userID, clientIP string, success bool, cause error) {
	if m.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: m.now().UTC(),
		EventType: eventType,
		SessionID: sessionID,
		UserID:    userID,
		ClientIP:  clientIP,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	m.audit.Emit(ctx, event)
}
