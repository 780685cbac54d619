package authcore

import (
	"context"
	"fmt"

	"github.com/eprintd/authcore/credstore"
	"github.com/eprintd/authcore/internal/audit"
	"github.com/eprintd/authcore/logging"
	"github.com/eprintd/authcore/password"
	"github.com/eprintd/authcore/session"
)

// Core bundles the configured Authenticator and session Manager behind a
// single constructor.
type Core struct {
	Auth     *Authenticator
	Sessions *session.Manager

	dispatcher *audit.Dispatcher
}

// CoreOption customizes construction.
type CoreOption func(*coreOptions)

type coreOptions struct {
	log  logging.Logger
	sink audit.Sink
}

// WithCoreLogger attaches a structured logger to both components.
func WithCoreLogger(l logging.Logger) CoreOption {
	return func(o *coreOptions) { o.log = l }
}

// WithAuditSink routes audit events to the given sink. Audit must also be
// enabled in the configuration.
func WithAuditSink(s audit.Sink) CoreOption {
	return func(o *coreOptions) { o.sink = s }
}

// New validates the configuration and wires an Authenticator and session
// Manager onto the provided stores. The credential store and session
// store are injected, not constructed here: callers choose Postgres or
// memory, Redis or memory, per deployment.
func New(cfg Config, creds credstore.Store, sessions session.Store, opts ...CoreOption) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := coreOptions{log: logging.Nop{}}
	for _, opt := range opts {
		opt(&options)
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, options.sink, options.log)

	auth, err := NewAuthenticator(creds, hasher,
		WithLogger(options.log), WithAudit(dispatcher))
	if err != nil {
		dispatcher.Close()
		return nil, err
	}

	manager, err := session.NewManager(cfg.sessionConfig(), sessions,
		session.WithLogger(options.log), session.WithAudit(dispatcher))
	if err != nil {
		dispatcher.Close()
		return nil, err
	}

	return &Core{Auth: auth, Sessions: manager, dispatcher: dispatcher}, nil
}

// NewWithPostgres opens the Postgres credential store named by
// cfg.Store.URI and wires it with the given session store. Callers that
// construct their own credential store use [New] directly.
func NewWithPostgres(ctx context.Context, cfg Config, sessions session.Store, opts ...CoreOption) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store.URI == "" {
		return nil, fmt.Errorf("%w: store URI must not be empty", ErrConfiguration)
	}

	creds, err := credstore.OpenPostgres(ctx, cfg.Store.URI)
	if err != nil {
		return nil, err
	}

	core, err := New(cfg, creds, sessions, opts...)
	if err != nil {
		_ = creds.Close()
		return nil, err
	}
	return core, nil
}

// Close drains and stops the audit dispatcher.
func (c *Core) Close() {
	c.dispatcher.Close()
}
