package flows

import (
	"context"
	"errors"
	"time"

	"github.com/Qonteh/fxauth/store"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureDecode
	RefreshFailureRateLimited
	RefreshFailureNotFound
	RefreshFailureExpired
	RefreshFailureReuse
	RefreshFailureStore
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
// Subject is populated whenever the record was located, including on
// reuse, so the caller can run containment.
type RefreshResult struct {
	Failure         RefreshFailureKind
	Err             error
	Subject         string
	TokenID         string
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, tokenID string) error
}

type RefreshTokenStore interface {
	GetRefresh(ctx context.Context, tokenID string) (*store.RefreshRecord, error)
	RevokeRefresh(ctx context.Context, tokenID string) (bool, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	DecodeRefresh func(string) (subject, tokenID string, err error)
	IssueRefresh  func(ctx context.Context, subject string) (string, error)
	IssueAccess   func(ctx context.Context, subject string) (string, time.Time, error)
	Now           func() time.Time
	RateLimiter   RefreshRateLimiter
	Store         RefreshTokenStore
}

// RunRefresh executes one rotation attempt. Reuse signals are: a record
// already marked revoked, presented material that differs from the stored
// material, and losing the atomic revoke to a concurrent presenter. The
// caller decides what containment follows.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	subject, tokenID, err := deps.DecodeRefresh(refreshToken)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureDecode,
			Err:     err,
		}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, tokenID); err != nil {
			return RefreshResult{
				Failure: RefreshFailureRateLimited,
				Err:     err,
				Subject: subject,
				TokenID: tokenID,
			}
		}
	}

	record, err := deps.Store.GetRefresh(ctx, tokenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RefreshResult{
				Failure: RefreshFailureNotFound,
				Err:     err,
				Subject: subject,
				TokenID: tokenID,
			}
		}
		return RefreshResult{
			Failure: RefreshFailureStore,
			Err:     err,
			Subject: subject,
			TokenID: tokenID,
		}
	}

	if record.Revoked {
		return RefreshResult{
			Failure: RefreshFailureReuse,
			Err:     errors.New("revoked refresh token presented"),
			Subject: record.Subject,
			TokenID: tokenID,
		}
	}

	if record.Material != refreshToken {
		return RefreshResult{
			Failure: RefreshFailureReuse,
			Err:     errors.New("refresh material mismatch"),
			Subject: record.Subject,
			TokenID: tokenID,
		}
	}

	if record.Expired(deps.Now()) {
		return RefreshResult{
			Failure: RefreshFailureExpired,
			Err:     errors.New("refresh record expired"),
			Subject: record.Subject,
			TokenID: tokenID,
		}
	}

	won, err := deps.Store.RevokeRefresh(ctx, tokenID)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureStore,
			Err:     err,
			Subject: record.Subject,
			TokenID: tokenID,
		}
	}
	if !won {
		// A concurrent presenter rotated first. One of the two copies is
		// not the legitimate client, so this counts as reuse.
		return RefreshResult{
			Failure: RefreshFailureReuse,
			Err:     errors.New("concurrent rotation lost"),
			Subject: record.Subject,
			TokenID: tokenID,
		}
	}

	newRefresh, err := deps.IssueRefresh(ctx, record.Subject)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureIssue,
			Err:     err,
			Subject: record.Subject,
			TokenID: tokenID,
		}
	}

	accessToken, accessExpiresAt, err := deps.IssueAccess(ctx, record.Subject)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureIssue,
			Err:     err,
			Subject: record.Subject,
			TokenID: tokenID,
		}
	}

	return RefreshResult{
		Subject:         record.Subject,
		TokenID:         tokenID,
		AccessToken:     accessToken,
		RefreshToken:    newRefresh,
		AccessExpiresAt: accessExpiresAt,
	}
}
