package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the server-side session authority. Implementations must give
// per-key atomicity: a MarkInvalid racing a Get on the same id resolves to
// one order or the other, never a torn state.
type Store interface {
	// Save persists a freshly created session until its expiry.
	Save(ctx context.Context, s *Session) error
	// Get returns the session for an id, ErrUnknown when absent.
	Get(ctx context.Context, sessionID string) (*Session, error)
	// MarkInvalid flips the invalidation marker. It reports whether a
	// record existed; marking an already-invalid session again is a no-op
	// that still reports true.
	MarkInvalid(ctx context.Context, sessionID string) (bool, error)
	// Delete removes a record. Deleting an absent id is not an error.
	Delete(ctx context.Context, sessionID string) error
}

const minTTL = time.Second

// markInvalidScript patches the invalidation marker (byte 2, Lua
// 1-indexed) in place, preserving the remaining TTL. Returns 1 when
// marked, 0 when no live record exists, -1 for an undecodable blob.
const markInvalidScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
if #data < 2 then
  return -1
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl <= 0 then
  return 0
end
local updated = string.sub(data, 1, 1) .. string.char(1) .. string.sub(data, 3)
redis.call("SET", KEYS[1], updated, "PX", ttl)
return 1
`

var markInvalidLua = redis.NewScript(markInvalidScript)

// RedisStore keeps sessions in Redis with a TTL matching the session
// lifetime, so terminal sessions are garbage-collected without a sweep.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore wraps a Redis client. prefix namespaces the keys;
// "sess" is used when empty.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + ":" + sessionID
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl < minTTL {
		ttl = minTTL
	}

	if err := r.redis.Set(ctx, r.key(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := r.redis.Get(ctx, r.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnknown
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: undecodable record: %v", ErrCorrupted, err)
	}
	s.ID = sessionID
	return s, nil
}

func (r *RedisStore) MarkInvalid(ctx context.Context, sessionID string) (bool, error) {
	status, err := markInvalidLua.Run(ctx, r.redis, []string{r.key(sessionID)}).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	switch status {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("%w: undecodable record", ErrCorrupted)
	}
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.redis.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
