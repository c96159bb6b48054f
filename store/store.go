package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is an exported constant or variable used by the authentication engine.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is an exported constant or variable used by the authentication engine.
	ErrConflict = errors.New("token id already exists")
	// ErrUnavailable is an exported constant or variable used by the authentication engine.
	ErrUnavailable = errors.New("store unavailable")
)

// RefreshRecord defines a public type used by fxauth APIs.
//
// RefreshRecord instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RefreshRecord struct {
	TokenID   string
	Subject   string
	Material  string
	Revoked   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record's expiry is at or before now.
func (r *RefreshRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// PurgeResult defines a public type used by fxauth APIs.
//
// PurgeResult instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PurgeResult struct {
	RefreshRemoved int
	AccessRemoved  int
}

// Store is the persistence boundary for refresh records, the revoked
// access denylist, and issued-access tracking. All methods are safe for
// concurrent use. Backend outages surface as [ErrUnavailable] so callers
// can classify them as retryable.
type Store interface {
	// PutRefresh inserts a new refresh record keyed by its token id.
	// Returns ErrConflict if the token id already exists.
	PutRefresh(ctx context.Context, record *RefreshRecord) error

	// GetRefresh looks up a refresh record by token id. Returns
	// ErrNotFound when no record exists.
	GetRefresh(ctx context.Context, tokenID string) (*RefreshRecord, error)

	// RevokeRefresh atomically marks the record revoked if and only if it
	// exists and is not yet revoked. Reports whether this call performed
	// the flip; false means missing or already revoked.
	RevokeRefresh(ctx context.Context, tokenID string) (bool, error)

	// RevokeAllRefreshFor revokes every live refresh record belonging to
	// subject and returns how many were flipped.
	RevokeAllRefreshFor(ctx context.Context, subject string) (int, error)

	// AddRevokedAccess denylists an access token id until expiresAt.
	// Idempotent.
	AddRevokedAccess(ctx context.Context, tokenID string, expiresAt time.Time) error

	// IsAccessRevoked reports whether an access token id is denylisted.
	IsAccessRevoked(ctx context.Context, tokenID string) (bool, error)

	// TrackAccess records that an access token id was issued to subject,
	// so a later mass revocation can denylist it. No-op when tracking is
	// disabled by the caller.
	TrackAccess(ctx context.Context, subject, tokenID string, expiresAt time.Time) error

	// RevokeAllAccessFor denylists every tracked, unexpired access token
	// id belonging to subject and returns how many were denylisted.
	RevokeAllAccessFor(ctx context.Context, subject string) (int, error)

	// PurgeExpired removes expired refresh records and expired denylist
	// entries, and returns counts of what was removed.
	PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error)

	// Close releases backend resources.
	Close() error
}
