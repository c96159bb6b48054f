package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS fxauth_refresh_tokens (
	token_id   text PRIMARY KEY,
	subject    text NOT NULL,
	material   text NOT NULL,
	revoked    boolean NOT NULL DEFAULT false,
	created_at timestamptz NOT NULL,
	expires_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS fxauth_refresh_tokens_subject_idx
	ON fxauth_refresh_tokens (subject) WHERE NOT revoked;

CREATE TABLE IF NOT EXISTS fxauth_revoked_access (
	token_id   text PRIMARY KEY,
	expires_at timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS fxauth_tracked_access (
	token_id   text PRIMARY KEY,
	subject    text NOT NULL,
	expires_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS fxauth_tracked_access_subject_idx
	ON fxauth_tracked_access (subject);
`

// PostgresStore defines a public type used by fxauth APIs.
//
// PostgresStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pgx connection pool as a [Store]. Call
// [PostgresStore.Migrate] once at startup to create the tables.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the token tables and indexes if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// PutRefresh describes the putrefresh operation and its observable behavior.
//
// PutRefresh may return an error when input validation, dependency calls, or security checks fail.
func (s *PostgresStore) PutRefresh(ctx context.Context, record *RefreshRecord) error {
	if record.TokenID == "" {
		return errors.New("empty token id")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fxauth_refresh_tokens
			(token_id, subject, material, revoked, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.TokenID, record.Subject, record.Material,
		record.Revoked, record.CreatedAt, record.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetRefresh describes the getrefresh operation and its observable behavior.
//
// GetRefresh may return an error when input validation, dependency calls, or security checks fail.
func (s *PostgresStore) GetRefresh(ctx context.Context, tokenID string) (*RefreshRecord, error) {
	record := &RefreshRecord{TokenID: tokenID}
	err := s.pool.QueryRow(ctx,
		`SELECT subject, material, revoked, created_at, expires_at
		 FROM fxauth_refresh_tokens WHERE token_id = $1`,
		tokenID).Scan(&record.Subject, &record.Material, &record.Revoked,
		&record.CreatedAt, &record.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return record, nil
}

// RevokeRefresh flips the revoked flag with a conditional UPDATE; the row
// count tells this caller whether it won the flip.
func (s *PostgresStore) RevokeRefresh(ctx context.Context, tokenID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE fxauth_refresh_tokens SET revoked = true
		 WHERE token_id = $1 AND NOT revoked`,
		tokenID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllRefreshFor describes the revokeallrefreshfor operation and its observable behavior.
//
// RevokeAllRefreshFor may return an error when input validation, dependency calls, or security checks fail.
func (s *PostgresStore) RevokeAllRefreshFor(ctx context.Context, subject string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE fxauth_refresh_tokens SET revoked = true
		 WHERE subject = $1 AND NOT revoked`,
		subject)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// AddRevokedAccess describes the addrevokedaccess operation and its observable behavior.
//
// AddRevokedAccess may return an error when input validation, dependency calls, or security checks fail.
func (s *PostgresStore) AddRevokedAccess(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fxauth_revoked_access (token_id, expires_at)
		 VALUES ($1, $2) ON CONFLICT (token_id) DO NOTHING`,
		tokenID, expiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsAccessRevoked describes the isaccessrevoked operation and its observable behavior.
//
// IsAccessRevoked may return an error when input validation, dependency calls, or security checks fail.
func (s *PostgresStore) IsAccessRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM fxauth_revoked_access
			WHERE token_id = $1 AND expires_at > now()
		 )`,
		tokenID).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return revoked, nil
}

// TrackAccess describes the trackaccess operation and its observable behavior.
//
// TrackAccess may return an error when input validation, dependency calls, or security checks fail.
func (s *PostgresStore) TrackAccess(ctx context.Context, subject, tokenID string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fxauth_tracked_access (token_id, subject, expires_at)
		 VALUES ($1, $2, $3) ON CONFLICT (token_id) DO NOTHING`,
		tokenID, subject, expiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RevokeAllAccessFor describes the revokeallaccessfor operation and its observable behavior.
//
// RevokeAllAccessFor may return an error when input validation, dependency calls, or security checks fail.
func (s *PostgresStore) RevokeAllAccessFor(ctx context.Context, subject string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO fxauth_revoked_access (token_id, expires_at)
		 SELECT token_id, expires_at FROM fxauth_tracked_access
		 WHERE subject = $1 AND expires_at > now()
		 ON CONFLICT (token_id) DO NOTHING`,
		subject)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM fxauth_tracked_access WHERE subject = $1`,
		subject); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeExpired deletes expired rows and reports exact counts, unlike the
// Redis implementation where record keys expire on their own.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error) {
	var result PurgeResult

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM fxauth_refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	result.RefreshRemoved = int(tag.RowsAffected())

	tag, err = s.pool.Exec(ctx,
		`DELETE FROM fxauth_revoked_access WHERE expires_at <= $1`, now)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	result.AccessRemoved = int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM fxauth_tracked_access WHERE expires_at <= $1`, now); err != nil {
		return result, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return result, nil
}

// Close describes the close operation and its observable behavior.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
