package flows

import (
	"context"
	"time"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureBadCredentials
	LoginFailureIssue
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Failure         LoginFailureKind
	Err             error
	Subject         string
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

type LoginRateLimiter interface {
	CheckLogin(ctx context.Context, identifier, ip string) error
	IncrementLogin(ctx context.Context, identifier, ip string) error
	ResetLogin(ctx context.Context, identifier, ip string) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	VerifyCredentials func(ctx context.Context, identifier, password string) (string, error)
	IssueRefresh      func(ctx context.Context, subject string) (string, error)
	IssueAccess       func(ctx context.Context, subject string) (string, time.Time, error)
	ClientIP          func(context.Context) string
	Warn              func(string, ...any)
	RateLimiter       LoginRateLimiter
}

// RunLogin verifies credentials and issues a fresh token pair. Failed
// verifications increment the attempt counter; successful ones clear it.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) LoginResult {
	var ip string
	if deps.ClientIP != nil {
		ip = deps.ClientIP(ctx)
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			return LoginResult{
				Failure: LoginFailureRateLimited,
				Err:     err,
			}
		}
	}

	subject, err := deps.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		if deps.RateLimiter != nil {
			if incErr := deps.RateLimiter.IncrementLogin(ctx, identifier, ip); incErr != nil && deps.Warn != nil {
				deps.Warn("fxauth: login attempt tracking failed")
			}
		}
		return LoginResult{
			Failure: LoginFailureBadCredentials,
			Err:     err,
		}
	}

	if deps.RateLimiter != nil {
		if resetErr := deps.RateLimiter.ResetLogin(ctx, identifier, ip); resetErr != nil && deps.Warn != nil {
			deps.Warn("fxauth: login attempt reset failed")
		}
	}

	refreshToken, err := deps.IssueRefresh(ctx, subject)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureIssue,
			Err:     err,
			Subject: subject,
		}
	}

	accessToken, accessExpiresAt, err := deps.IssueAccess(ctx, subject)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureIssue,
			Err:     err,
			Subject: subject,
		}
	}

	return LoginResult{
		Subject:         subject,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExpiresAt,
	}
}
