package authcore

import (
	"fmt"
	"net/url"
	"time"

	"github.com/eprintd/authcore/password"
	"github.com/eprintd/authcore/session"
)

// Config is the full configuration surface of the core. Construct it,
// adjust fields, and pass it to [New]; it is not read again afterwards.
type Config struct {
	Session  SessionSettings
	Password password.Config
	Store    StoreSettings
	Audit    AuditSettings
}

// SessionSettings configures the session manager.
type SessionSettings struct {
	// Duration is the session lifetime from issue to expiry.
	Duration time.Duration
	// Secret keys the cookie integrity tag. Required.
	Secret string
	// CookieName is the suggested cookie name for HTTP callers.
	CookieName string
	// Format selects the token serialization (compact HMAC or JWT).
	Format session.TokenFormat
	// RedisPrefix namespaces session keys when the Redis store is used.
	RedisPrefix string
}

// StoreSettings locates the credential store.
type StoreSettings struct {
	// URI is the connection descriptor, e.g. a postgres:// URL. Consumed
	// by [NewWithPostgres]; leave empty when injecting a store into [New].
	URI string
}

// AuditSettings configures audit event dispatch.
type AuditSettings struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// DefaultConfig returns a Config with production-shaped defaults and an
// intentionally empty secret: Validate fails until the caller sets one.
func DefaultConfig() Config {
	return Config{
		Session: SessionSettings{
			Duration:   10 * time.Hour,
			CookieName: "registry_session",
			Format:     session.FormatCompact,
		},
		Password: password.DefaultConfig(),
		Audit: AuditSettings{
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate reports startup-time configuration faults. All returned errors
// match ErrConfiguration.
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("%w: session secret must not be empty", ErrConfiguration)
	}
	if c.Session.Duration <= 0 {
		return fmt.Errorf("%w: session duration must be positive", ErrConfiguration)
	}
	switch c.Session.Format {
	case session.FormatCompact, session.FormatJWT, "":
	default:
		return fmt.Errorf("%w: unknown token format %q", ErrConfiguration, c.Session.Format)
	}
	if c.Store.URI != "" {
		u, err := url.Parse(c.Store.URI)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("%w: malformed store URI %q", ErrConfiguration, c.Store.URI)
		}
	}
	return nil
}

// sessionConfig maps the settings onto the session package's Config.
func (c *Config) sessionConfig() session.Config {
	return session.Config{
		Duration: c.Session.Duration,
		Secret:   []byte(c.Session.Secret),
		Format:   c.Session.Format,
	}
}
