package session

import (
	"time"

	"github.com/eprintd/authcore/authz"
	"github.com/eprintd/authcore/identity"
)

// Session is the server-side record of one authenticated context. It is
// created once and treated as immutable; the only field that ever changes
// after creation is the invalidation marker, and only via Store.MarkInvalid.
type Session struct {
	ID string

	User           identity.User
	Authorizations authz.Authorizations

	// Network endpoints observed at creation.
	ClientIP   string
	RemoteHost string

	IssuedAt  time.Time
	ExpiresAt time.Time

	Invalidated bool
}

// clone returns a deep copy, including the authorization point table.
func (s *Session) clone() *Session {
	out := *s
	out.Authorizations = authz.FromSnapshot(
		s.Authorizations.Snapshot(),
		s.Authorizations.EditUsers,
		s.Authorizations.EditSystem,
	)
	return &out
}
