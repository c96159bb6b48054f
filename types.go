package fxauth

import (
	"context"
	"time"
)

// CredentialVerifier is the interface callers implement to plug their
// user database into the engine. VerifyCredentials returns the stable
// subject identifier for the account (it becomes the token sub claim) or
// an error when the identifier/password pair does not match.
//
// The engine never distinguishes "unknown identifier" from "wrong
// password" in its public errors; both surface as [ErrInvalidCredentials].
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, identifier, password string) (string, error)
}

// CredentialVerifierFunc adapts a function to the [CredentialVerifier]
// interface.
type CredentialVerifierFunc func(ctx context.Context, identifier, password string) (string, error)

func (f CredentialVerifierFunc) VerifyCredentials(ctx context.Context, identifier, password string) (string, error) {
	return f(ctx, identifier, password)
}

// TokenPair is returned by [Engine.Login] and [Engine.Refresh]. Both
// tokens are compact JWTs; TokenType is always "bearer".
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	TokenType       string
	AccessExpiresAt time.Time
}

// AuthResult is returned by [Engine.ValidateAccess]. It carries the
// authenticated subject and the access token's unique id.
type AuthResult struct {
	Subject string
	TokenID string
}
