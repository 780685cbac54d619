package credstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eprintd/authcore/authz"
)

// Memory is an in-process Store for tests and single-node deployments.
// A single mutex makes CreateAccount atomic with respect to lookups.
type Memory struct {
	mu           sync.RWMutex
	accounts     map[string]*AccountRecord // by user id
	byEmail      map[string]string
	byUsername   map[string]string
	profiles     map[string]*ProfileRecord
	endorsements map[string][]authz.Endorsement
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[string]*AccountRecord),
		byEmail:      make(map[string]string),
		byUsername:   make(map[string]string),
		profiles:     make(map[string]*ProfileRecord),
		endorsements: make(map[string][]authz.Endorsement),
	}
}

func (m *Memory) FindAccountByIdentifier(ctx context.Context, identifier string) (*AccountRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[identifier]
	if !ok {
		id, ok = m.byUsername[identifier]
	}
	if !ok {
		return nil, ErrNotFound
	}
	rec := *m.accounts[id]
	return &rec, nil
}

func (m *Memory) FindAccountByID(ctx context.Context, userID string) (*AccountRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	rec := *acct
	return &rec, nil
}

func (m *Memory) FindProfile(ctx context.Context, userID string) (*ProfileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	rec := *p
	return &rec, nil
}

func (m *Memory) FindEndorsements(ctx context.Context, userID string) ([]authz.Endorsement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]authz.Endorsement, len(m.endorsements[userID]))
	copy(out, m.endorsements[userID])
	return out, nil
}

func (m *Memory) CreateAccount(ctx context.Context, in NewAccount) (*AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byEmail[in.Email]; taken {
		return nil, fmt.Errorf("%w: email %s", ErrDuplicate, in.Email)
	}
	if _, taken := m.byUsername[in.Username]; taken {
		return nil, fmt.Errorf("%w: username %s", ErrDuplicate, in.Username)
	}

	rec := &AccountRecord{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Flags:        in.Flags,
		JoinedAt:     time.Now().UTC(),
	}

	profile := in.Profile
	profile.UserID = rec.ID

	endorsements := make([]authz.Endorsement, len(in.Endorsements))
	copy(endorsements, in.Endorsements)

	m.accounts[rec.ID] = rec
	m.byEmail[rec.Email] = rec.ID
	m.byUsername[rec.Username] = rec.ID
	m.profiles[rec.ID] = &profile
	m.endorsements[rec.ID] = endorsements

	out := *rec
	return &out, nil
}

// SetFlags replaces the status flags on an existing account. Test helper
// for exercising status-gated authentication.
func (m *Memory) SetFlags(userID string, flags authz.AccountFlags) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.accounts[userID]
	if !ok {
		return ErrNotFound
	}
	acct.Flags = flags
	return nil
}

// AddEndorsement appends an endorsement record for an existing account.
func (m *Memory) AddEndorsement(userID string, e authz.Endorsement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[userID]; !ok {
		return ErrNotFound
	}
	m.endorsements[userID] = append(m.endorsements[userID], e)
	return nil
}
