// Package session persists imported external profiles under an onboarding
// session id until the signup flow completes or the record expires.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carelinkhealth/onboarding/internal/profile"
	"go.uber.org/zap"
)

// DefaultTTL bounds how long a completed import stays readable.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when no live record exists for a session id.
var ErrNotFound = errors.New("session not found")

// ErrPersistFailed is returned when the backing store cannot be written.
var ErrPersistFailed = errors.New("session persist failed")

// Record is an imported profile held for one onboarding session.
// TokenHash is a keyed one-way reference; the raw token is never stored.
type Record struct {
	SessionID string                  `json:"session_id"`
	Profile   profile.ExternalProfile `json:"profile_data"`
	TokenHash string                  `json:"token_hash"`
	ExpiresAt time.Time               `json:"expires_at"`
	CreatedAt time.Time               `json:"created_at"`
}

// Expired reports whether the record is past its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Backend is a single-key record store. Put is an upsert; the last writer wins.
type Backend interface {
	Put(ctx context.Context, rec *Record) error
	Get(ctx context.Context, sessionID string) (*Record, error)
	Delete(ctx context.Context, sessionID string) error
}

// Sweeper is implemented by backends that need expired rows removed in bulk.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store applies TTL and token-reference rules on top of a Backend.
type Store struct {
	backend Backend
	hasher  *TokenHasher
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewStore creates a Store. A zero ttl uses DefaultTTL.
func NewStore(backend Backend, hasher *TokenHasher, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		backend: backend,
		hasher:  hasher,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Save writes the profile for sessionID, replacing any earlier import.
func (s *Store) Save(ctx context.Context, sessionID string, p *profile.ExternalProfile, accessToken string) (*Record, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: empty session id", ErrPersistFailed)
	}
	if p == nil || p.ExternalID == "" {
		return nil, fmt.Errorf("%w: profile has no external id", ErrPersistFailed)
	}

	now := s.now().UTC()
	rec := &Record{
		SessionID: sessionID,
		Profile:   *p,
		TokenHash: s.hasher.Sum(accessToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return rec, nil
}

// Load returns the live record for sessionID. A record past its expiry is
// deleted and reported as ErrNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (*Record, error) {
	if sessionID == "" {
		return nil, ErrNotFound
	}
	rec, err := s.backend.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.Expired(s.now()) {
		if err := s.backend.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("delete expired session", zap.String("session_id", sessionID), zap.Error(err))
		}
		return nil, ErrNotFound
	}
	return rec, nil
}

// Purge removes the record for sessionID. Purging a missing record is not an error.
func (s *Store) Purge(ctx context.Context, sessionID string) error {
	if err := s.backend.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("purge session: %w", err)
	}
	return nil
}

// DeleteExpired sweeps expired records when the backend supports it.
// Backends with native expiry report zero.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	sw, ok := s.backend.(Sweeper)
	if !ok {
		return 0, nil
	}
	return sw.DeleteExpired(ctx, s.now())
}

// Ping checks the backend connection. Backends without a Pinger are assumed reachable.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
