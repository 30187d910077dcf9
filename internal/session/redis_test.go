package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/carelinkhealth/onboarding/internal/profile"
	"github.com/carelinkhealth/onboarding/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newRedisBackend(t *testing.T) (*miniredis.Miniredis, *session.RedisBackend) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, session.NewRedisBackend(rdb)
}

func TestRedisBackend_PutGet(t *testing.T) {
	mr, b := newRedisBackend(t)
	ctx := context.Background()

	rec := &session.Record{
		SessionID: "sess-1",
		Profile:   profile.ExternalProfile{ExternalID: "li-1", Email: "ana@example.com"},
		TokenHash: "abc",
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	if err := b.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if ttl := mr.TTL("external_import:sess-1"); ttl <= 0 || ttl > time.Hour {
		t.Errorf("expected key TTL within an hour, got %v", ttl)
	}

	got, err := b.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Profile.Email != "ana@example.com" || got.TokenHash != "abc" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestRedisBackend_expiresNatively(t *testing.T) {
	mr, b := newRedisBackend(t)
	ctx := context.Background()

	rec := &session.Record{
		SessionID: "sess-1",
		Profile:   profile.ExternalProfile{ExternalID: "li-1"},
		ExpiresAt: time.Now().Add(time.Minute),
	}
	if err := b.Put(ctx, rec); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := b.Get(ctx, "sess-1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestRedisBackend_rejectsPastExpiry(t *testing.T) {
	_, b := newRedisBackend(t)
	now := time.Now()
	err := b.Put(context.Background(), &session.Record{
		SessionID: "sess-1",
		CreatedAt: now,
		ExpiresAt: now.Add(-time.Second),
	})
	if err == nil {
		t.Error("expected error for a record already expired")
	}
}

func TestRedisBackend_DeleteAndPing(t *testing.T) {
	_, b := newRedisBackend(t)
	ctx := context.Background()

	if err := b.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	_ = b.Put(ctx, &session.Record{SessionID: "sess-1", ExpiresAt: time.Now().Add(time.Hour)})
	if err := b.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := b.Get(ctx, "sess-1"); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_overRedis(t *testing.T) {
	_, b := newRedisBackend(t)
	hasher, _ := session.NewTokenHasher("k")
	store := session.NewStore(b, hasher, time.Hour, zap.NewNop())
	ctx := context.Background()

	if _, err := store.Save(ctx, "sess-1", &profile.ExternalProfile{ExternalID: "li-1"}, "token"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rec.TokenHash == "" || rec.TokenHash == "token" {
		t.Errorf("expected a one-way token reference, got %q", rec.TokenHash)
	}
	if n, err := store.DeleteExpired(ctx); err != nil || n != 0 {
		t.Errorf("redis relies on native TTL: n=%d err=%v", n, err)
	}
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestStore_overRedis_followsStoreClock(t *testing.T) {
	mr, b := newRedisBackend(t)
	hasher, _ := session.NewTokenHasher("k")
	store := session.NewStore(b, hasher, time.Hour, zap.NewNop())
	past := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return past })
	ctx := context.Background()

	if _, err := store.Save(ctx, "sess-1", &profile.ExternalProfile{ExternalID: "li-1"}, "token"); err != nil {
		t.Fatalf("Save under a fixed clock: %v", err)
	}
	if ttl := mr.TTL("external_import:sess-1"); ttl != time.Hour {
		t.Errorf("expected key TTL of the store ttl, got %v", ttl)
	}
	if _, err := store.Load(ctx, "sess-1"); err != nil {
		t.Errorf("Load: %v", err)
	}
}
