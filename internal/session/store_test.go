package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carelinkhealth/onboarding/internal/profile"
	"github.com/carelinkhealth/onboarding/internal/session"
	"go.uber.org/zap"
)

var ctx = context.Background()

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newStore(t *testing.T) (*session.Store, *session.MemoryBackend, *testClock) {
	t.Helper()
	hasher, err := session.NewTokenHasher("test-key")
	if err != nil {
		t.Fatal(err)
	}
	backend := session.NewMemoryBackend()
	clock := &testClock{t: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	s := session.NewStore(backend, hasher, 24*time.Hour, zap.NewNop())
	s.SetClock(clock.now)
	return s, backend, clock
}

func TestStore_saveAndLoad(t *testing.T) {
	s, _, clock := newStore(t)
	p := &profile.ExternalProfile{ExternalID: "li-1", DisplayName: "Ana Ruiz"}

	rec, err := s.Save(ctx, "sess-1", p, "raw-access-token")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !rec.ExpiresAt.Equal(clock.t.Add(24 * time.Hour)) {
		t.Errorf("ExpiresAt: got %v", rec.ExpiresAt)
	}
	if rec.TokenHash == "" || rec.TokenHash == "raw-access-token" {
		t.Errorf("TokenHash must be a non-empty reference, got %q", rec.TokenHash)
	}

	got, err := s.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Profile.DisplayName != "Ana Ruiz" {
		t.Errorf("DisplayName: got %q", got.Profile.DisplayName)
	}
}

func TestStore_saveRejectsIncompleteInput(t *testing.T) {
	s, _, _ := newStore(t)

	if _, err := s.Save(ctx, "", &profile.ExternalProfile{ExternalID: "x"}, "tok"); !errors.Is(err, session.ErrPersistFailed) {
		t.Errorf("empty session id: expected ErrPersistFailed, got %v", err)
	}
	if _, err := s.Save(ctx, "sess", &profile.ExternalProfile{}, "tok"); !errors.Is(err, session.ErrPersistFailed) {
		t.Errorf("missing external id: expected ErrPersistFailed, got %v", err)
	}
}

func TestStore_lastWriteWins(t *testing.T) {
	s, backend, _ := newStore(t)

	_, _ = s.Save(ctx, "sess", &profile.ExternalProfile{ExternalID: "first"}, "t1")
	_, _ = s.Save(ctx, "sess", &profile.ExternalProfile{ExternalID: "second"}, "t2")

	got, err := s.Load(ctx, "sess")
	if err != nil {
		t.Fatal(err)
	}
	if got.Profile.ExternalID != "second" {
		t.Errorf("expected last write to win, got %q", got.Profile.ExternalID)
	}
	if backend.Len() != 1 {
		t.Errorf("expected 1 record, got %d", backend.Len())
	}
}

func TestStore_loadExpiredDeletes(t *testing.T) {
	s, backend, clock := newStore(t)
	_, _ = s.Save(ctx, "sess", &profile.ExternalProfile{ExternalID: "li-1"}, "tok")

	clock.t = clock.t.Add(24*time.Hour + time.Second)

	if _, err := s.Load(ctx, "sess"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	if backend.Len() != 0 {
		t.Errorf("expected expired record to be deleted, %d remain", backend.Len())
	}

	// Rewinding the clock must not resurrect it.
	clock.t = clock.t.Add(-48 * time.Hour)
	if _, err := s.Load(ctx, "sess"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected record to stay gone, got %v", err)
	}
}

func TestStore_loadMissing(t *testing.T) {
	s, _, _ := newStore(t)
	if _, err := s.Load(ctx, "nope"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Load(ctx, ""); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("empty id: expected ErrNotFound, got %v", err)
	}
}

func TestStore_purge(t *testing.T) {
	s, _, _ := newStore(t)
	_, _ = s.Save(ctx, "sess", &profile.ExternalProfile{ExternalID: "li-1"}, "tok")

	if err := s.Purge(ctx, "sess"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := s.Load(ctx, "sess"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound after purge, got %v", err)
	}
	if err := s.Purge(ctx, "sess"); err != nil {
		t.Errorf("second Purge should be a no-op, got %v", err)
	}
}

func TestStore_deleteExpired(t *testing.T) {
	s, backend, clock := newStore(t)
	_, _ = s.Save(ctx, "old", &profile.ExternalProfile{ExternalID: "a"}, "t")
	clock.t = clock.t.Add(12 * time.Hour)
	_, _ = s.Save(ctx, "new", &profile.ExternalProfile{ExternalID: "b"}, "t")
	clock.t = clock.t.Add(13 * time.Hour)

	n, err := s.DeleteExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 swept record, got %d", n)
	}
	if backend.Len() != 1 {
		t.Errorf("expected 1 remaining record, got %d", backend.Len())
	}
}

type failingBackend struct{}

func (failingBackend) Put(context.Context, *session.Record) error {
	return errors.New("connection refused")
}

func (failingBackend) Get(context.Context, string) (*session.Record, error) {
	return nil, session.ErrNotFound
}

func (failingBackend) Delete(context.Context, string) error { return nil }

func TestStore_persistFailure(t *testing.T) {
	hasher, _ := session.NewTokenHasher("k")
	s := session.NewStore(failingBackend{}, hasher, 0, zap.NewNop())

	_, err := s.Save(ctx, "sess", &profile.ExternalProfile{ExternalID: "x"}, "tok")
	if !errors.Is(err, session.ErrPersistFailed) {
		t.Errorf("expected ErrPersistFailed, got %v", err)
	}
}

func TestTokenHasher(t *testing.T) {
	h1, _ := session.NewTokenHasher("key-one")
	h2, _ := session.NewTokenHasher("key-two")

	a := h1.Sum("access-token")
	if a != h1.Sum("access-token") {
		t.Error("expected deterministic hash for the same key")
	}
	if a == h2.Sum("access-token") {
		t.Error("expected different references under different keys")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if h1.Sum("") != "" {
		t.Error("expected empty reference for empty token")
	}

	long, err := session.NewTokenHasher(string(make([]byte, 100)))
	if err != nil {
		t.Fatal(err)
	}
	if long.Sum("x") == "" {
		t.Error("expected long keys to be accepted")
	}
}
