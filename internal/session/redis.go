package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores records as JSON values whose key TTL matches the
// record expiry, so Redis evicts them without a sweeper.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a Redis-backed Backend.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{
		client: client,
		prefix: "external_import:",
	}
}

func (r *RedisBackend) key(sessionID string) string {
	return r.prefix + sessionID
}

// Put implements Backend. The key TTL is the record lifetime
// (ExpiresAt - CreatedAt), so it follows the clock that stamped the record.
func (r *RedisBackend) Put(ctx context.Context, rec *Record) error {
	ttl := rec.ExpiresAt.Sub(rec.CreatedAt)
	if rec.CreatedAt.IsZero() {
		ttl = time.Until(rec.ExpiresAt)
	}
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	return r.client.Set(ctx, r.key(rec.SessionID), data, ttl).Err()
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, sessionID string) (*Record, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &rec, nil
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

// Ping reports whether Redis is reachable.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
