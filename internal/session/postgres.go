package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by PostgresBackend.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresBackend stores records in the external_import_sessions table.
type PostgresBackend struct {
	db DB
}

// NewPostgresBackend creates a PostgresBackend over the given pool.
func NewPostgresBackend(db DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Put implements Backend as an upsert on session_id.
func (b *PostgresBackend) Put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	q := `
		INSERT INTO external_import_sessions (session_id, profile_data, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			profile_data = EXCLUDED.profile_data,
			token_hash   = EXCLUDED.token_hash,
			expires_at   = EXCLUDED.expires_at,
			created_at   = EXCLUDED.created_at`
	if _, err := b.db.Exec(ctx, q, rec.SessionID, data, rec.TokenHash, rec.ExpiresAt, rec.CreatedAt); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Get implements Backend.
func (b *PostgresBackend) Get(ctx context.Context, sessionID string) (*Record, error) {
	q := `
		SELECT session_id, profile_data, token_hash, expires_at, created_at
		FROM external_import_sessions
		WHERE session_id = $1`

	var rec Record
	var data []byte
	err := b.db.QueryRow(ctx, q, sessionID).Scan(
		&rec.SessionID, &data, &rec.TokenHash, &rec.ExpiresAt, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal(data, &rec.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &rec, nil
}

// Delete implements Backend.
func (b *PostgresBackend) Delete(ctx context.Context, sessionID string) error {
	if _, err := b.db.Exec(ctx, `DELETE FROM external_import_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired implements Sweeper.
func (b *PostgresBackend) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := b.db.Exec(ctx, `DELETE FROM external_import_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping reports whether the database is reachable.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.Ping(ctx)
}
