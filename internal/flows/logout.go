package flows

import (
	"context"
	"time"
)

// LogoutResult reports what a logout actually touched. An undecodable
// refresh token yields an empty result with DecodeErr set; logout never
// confirms or denies token validity to the caller.
type LogoutResult struct {
	Subject        string
	RefreshTokenID string
	AccessTokenID  string
	RefreshRevoked bool
	AccessDenied   bool
	DecodeErr      error
	StoreErr       error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	DecodeRefresh  func(string) (subject, tokenID string, err error)
	DecodeAccess   func(string) (subject, tokenID string, expiresAt time.Time, err error)
	RevokeRefresh  func(ctx context.Context, tokenID string) (bool, error)
	DenylistAccess func(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// RunLogout revokes the presented refresh token and, when an access token
// accompanies it, denylists that access token for its remaining lifetime.
// accessToken may be empty.
func RunLogout(ctx context.Context, refreshToken, accessToken string, deps LogoutDeps) LogoutResult {
	result := LogoutResult{}

	subject, refreshID, err := deps.DecodeRefresh(refreshToken)
	if err != nil {
		result.DecodeErr = err
	} else {
		result.Subject = subject
		result.RefreshTokenID = refreshID
		revoked, storeErr := deps.RevokeRefresh(ctx, refreshID)
		if storeErr != nil {
			result.StoreErr = storeErr
			return result
		}
		result.RefreshRevoked = revoked
	}

	if accessToken == "" {
		return result
	}

	accessSubject, accessID, expiresAt, err := deps.DecodeAccess(accessToken)
	if err != nil {
		if result.DecodeErr == nil {
			result.DecodeErr = err
		}
		return result
	}
	if result.Subject == "" {
		result.Subject = accessSubject
	}
	result.AccessTokenID = accessID

	if err := deps.DenylistAccess(ctx, accessID, expiresAt); err != nil {
		result.StoreErr = err
		return result
	}
	result.AccessDenied = true

	return result
}
