package fxauth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	internalaudit "github.com/Qonteh/fxauth/internal/audit"
	"github.com/Qonteh/fxauth/internal/flows"
	"github.com/Qonteh/fxauth/internal/rate"
	"github.com/Qonteh/fxauth/jwt"
	"github.com/Qonteh/fxauth/password"
	"github.com/Qonteh/fxauth/store"
)

// Engine defines a public type used by fxauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	tokenStore   store.Store
	rateLimiter  *rate.Limiter
	verifier     CredentialVerifier
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
}

var errWrongTokenKind = errors.New("unexpected token kind")

// Close flushes the audit dispatcher. It does not close caller-supplied
// clients or pools.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// drop-if-full buffering.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// PasswordHasher returns the Argon2id hasher configured at build time, so
// credential verifiers can hash and compare passwords with the engine's
// parameters.
func (e *Engine) PasswordHasher() *password.Argon2 {
	if e == nil {
		return nil
	}
	return e.passwordHash
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
TOKEN HELPERS
====================================
*/

func (e *Engine) decodeRefresh(token string) (string, string, error) {
	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		return "", "", err
	}
	if claims.Kind != jwt.KindRefresh {
		return "", "", errWrongTokenKind
	}
	return claims.Subject, claims.ID, nil
}

func (e *Engine) decodeAccess(token string) (string, string, error) {
	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		return "", "", err
	}
	if claims.Kind != jwt.KindAccess {
		return "", "", errWrongTokenKind
	}
	return claims.Subject, claims.ID, nil
}

func (e *Engine) decodeAccessWithExpiry(token string) (string, string, time.Time, error) {
	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		return "", "", time.Time{}, err
	}
	if claims.Kind != jwt.KindAccess {
		return "", "", time.Time{}, errWrongTokenKind
	}
	return claims.Subject, claims.ID, claims.ExpiresAt.Time, nil
}

// issueRefreshToken mints a refresh token and persists its record before
// the token string is ever returned to a caller. A token id collision is
// a fatal invariant breach, not a retry case.
func (e *Engine) issueRefreshToken(ctx context.Context, subject string) (string, error) {
	token, tokenID, expiresAt, err := e.jwtManager.CreateRefresh(subject)
	if err != nil {
		return "", err
	}

	record := &store.RefreshRecord{
		TokenID:   tokenID,
		Subject:   subject,
		Material:  token,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
	}
	if err := e.tokenStore.PutRefresh(ctx, record); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return "", fmt.Errorf("%w: %s", ErrTokenIDConflict, tokenID)
		}
		return "", err
	}

	return token, nil
}

func (e *Engine) issueAccessToken(ctx context.Context, subject string) (string, time.Time, error) {
	token, tokenID, expiresAt, err := e.jwtManager.CreateAccess(subject)
	if err != nil {
		return "", time.Time{}, err
	}

	if e.config.Security.TrackIssuedAccess {
		if err := e.tokenStore.TrackAccess(ctx, subject, tokenID, expiresAt); err != nil {
			return "", time.Time{}, err
		}
	}

	return token, expiresAt, nil
}

func (e *Engine) loginLimiter() flows.LoginRateLimiter {
	if e.rateLimiter == nil || !e.config.Security.EnableLoginThrottle {
		return nil
	}
	return e.rateLimiter
}

func (e *Engine) refreshLimiter() flows.RefreshRateLimiter {
	if e.rateLimiter == nil || !e.config.Security.EnableRefreshThrottle {
		return nil
	}
	return e.rateLimiter
}

func (e *Engine) mapIssueErr(err error) error {
	switch {
	case errors.Is(err, ErrTokenIDConflict):
		return err
	case errors.Is(err, store.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}

/*
====================================
LOGIN
====================================
*/

// Login verifies the identifier/password pair through the configured
// [CredentialVerifier] and, on success, issues a refresh/access token
// pair. Failed attempts count toward the login throttle.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	result := flows.RunLogin(ctx, identifier, password, flows.LoginDeps{
		VerifyCredentials: e.verifier.VerifyCredentials,
		IssueRefresh:      e.issueRefreshToken,
		IssueAccess:       e.issueAccessToken,
		ClientIP:          clientIPFromContext,
		Warn:              log.Printf,
		RateLimiter:       e.loginLimiter(),
	})

	switch result.Failure {
	case flows.LoginFailureNone:
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, result.Subject, "", nil, nil)
		return &TokenPair{
			AccessToken:     result.AccessToken,
			RefreshToken:    result.RefreshToken,
			TokenType:       "bearer",
			AccessExpiresAt: result.AccessExpiresAt,
		}, nil

	case flows.LoginFailureRateLimited:
		if !errors.Is(result.Err, rate.ErrRateLimited) {
			e.metricInc(MetricStoreUnavailable)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
		}
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, nil)
		return nil, ErrLoginRateLimited

	case flows.LoginFailureBadCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		return nil, ErrInvalidCredentials

	default:
		e.metricInc(MetricLoginFailure)
		return nil, e.mapIssueErr(result.Err)
	}
}

/*
====================================
REFRESH ROTATION
====================================
*/

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued in its place. Any reuse signal triggers mass
// revocation of the subject's tokens before [ErrRefreshReuse] is
// returned. Invalid tokens fail with the generic [ErrRefreshInvalid];
// the precise reason only appears in audit metadata.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	result := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		DecodeRefresh: e.decodeRefresh,
		IssueRefresh:  e.issueRefreshToken,
		IssueAccess:   e.issueAccessToken,
		Now:           time.Now,
		RateLimiter:   e.refreshLimiter(),
		Store:         e.tokenStore,
	})

	switch result.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshRotated, true, result.Subject, result.TokenID, nil, nil)
		return &TokenPair{
			AccessToken:     result.AccessToken,
			RefreshToken:    result.RefreshToken,
			TokenType:       "bearer",
			AccessExpiresAt: result.AccessExpiresAt,
		}, nil

	case flows.RefreshFailureDecode:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "decode"}
		})
		return nil, ErrRefreshInvalid

	case flows.RefreshFailureRateLimited:
		if !errors.Is(result.Err, rate.ErrRateLimited) {
			e.metricInc(MetricStoreUnavailable)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
		}
		e.metricInc(MetricRefreshRateLimited)
		e.emitAudit(ctx, auditEventRefreshRateLimited, false, result.Subject, result.TokenID, ErrRefreshRateLimited, nil)
		return nil, ErrRefreshRateLimited

	case flows.RefreshFailureNotFound:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.Subject, result.TokenID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "not_found"}
		})
		return nil, ErrRefreshInvalid

	case flows.RefreshFailureExpired:
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, result.Subject, result.TokenID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "expired"}
		})
		return nil, ErrRefreshInvalid

	case flows.RefreshFailureReuse:
		return nil, e.containReuse(ctx, result.Subject, result.TokenID, result.Err)

	case flows.RefreshFailureStore:
		e.metricInc(MetricStoreUnavailable)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)

	default:
		e.metricInc(MetricRefreshFailure)
		return nil, e.mapIssueErr(result.Err)
	}
}

// containReuse is the mandatory containment step after a reuse signal:
// every refresh token and every tracked access token for the subject is
// revoked before the reuse error is surfaced. If containment itself
// fails, the store error wins so callers know the sweep is incomplete.
func (e *Engine) containReuse(ctx context.Context, subject, tokenID string, cause error) error {
	e.metricInc(MetricRefreshReuseDetected)
	e.emitAudit(ctx, auditEventRefreshReuseDetected, false, subject, tokenID, ErrRefreshReuse, func() map[string]string {
		meta := map[string]string{}
		if cause != nil {
			meta["signal"] = cause.Error()
		}
		return meta
	})

	refreshRevoked, err := e.tokenStore.RevokeAllRefreshFor(ctx, subject)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: reuse containment incomplete: %v", ErrStoreUnavailable, err)
	}

	accessRevoked, err := e.tokenStore.RevokeAllAccessFor(ctx, subject)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: reuse containment incomplete: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricMassRevocation)
	e.emitAudit(ctx, auditEventMassRevocation, true, subject, tokenID, nil, func() map[string]string {
		return map[string]string{
			"refresh_revoked": strconv.Itoa(refreshRevoked),
			"access_revoked":  strconv.Itoa(accessRevoked),
			"trigger":         "refresh_reuse",
		}
	})

	return ErrRefreshReuse
}

/*
====================================
VALIDATION
====================================
*/

// ValidateAccess verifies an access token's signature, structure, and
// expiry, then checks the revocation denylist. It returns the subject on
// success; forged or expired tokens fail with [ErrTokenInvalid] and
// denylisted ones with [ErrTokenRevoked].
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}

	result := flows.RunValidate(ctx, accessToken, flows.ValidateDeps{
		DecodeAccess: e.decodeAccess,
		IsRevoked:    e.tokenStore.IsAccessRevoked,
	})

	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	switch result.Failure {
	case flows.ValidateFailureNone:
		e.metricInc(MetricValidateSuccess)
		return &AuthResult{
			Subject: result.Subject,
			TokenID: result.TokenID,
		}, nil

	case flows.ValidateFailureDecode:
		e.metricInc(MetricValidateFailure)
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, result.Err)

	case flows.ValidateFailureRevoked:
		e.metricInc(MetricValidateRevoked)
		e.emitAudit(ctx, auditEventAccessDenied, false, result.Subject, result.TokenID, ErrTokenRevoked, nil)
		return nil, ErrTokenRevoked

	default:
		e.metricInc(MetricStoreUnavailable)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Err)
	}
}

/*
====================================
LOGOUT
====================================
*/

// Logout revokes the presented refresh token and, when accessToken is
// non-empty, denylists that access token for its remaining lifetime.
// Undecodable tokens are an audited no-op: logout never reveals whether a
// token was valid. Only store outages surface as errors.
func (e *Engine) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	result := flows.RunLogout(ctx, refreshToken, accessToken, flows.LogoutDeps{
		DecodeRefresh:  e.decodeRefresh,
		DecodeAccess:   e.decodeAccessWithExpiry,
		RevokeRefresh:  e.tokenStore.RevokeRefresh,
		DenylistAccess: e.tokenStore.AddRevokedAccess,
	})

	if result.StoreErr != nil {
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.StoreErr)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, result.RefreshRevoked, result.Subject, result.RefreshTokenID, nil, func() map[string]string {
		meta := map[string]string{
			"refresh_revoked": strconv.FormatBool(result.RefreshRevoked),
			"access_denied":   strconv.FormatBool(result.AccessDenied),
		}
		if result.DecodeErr != nil {
			meta["reason"] = "decode"
		}
		return meta
	})

	return nil
}

// LogoutAll revokes every live refresh token for subject and denylists
// every tracked access token. It returns the number of refresh tokens
// revoked.
func (e *Engine) LogoutAll(ctx context.Context, subject string) (int, error) {
	if e == nil || e.jwtManager == nil {
		return 0, ErrEngineNotReady
	}
	if subject == "" {
		return 0, errors.New("empty subject")
	}

	refreshRevoked, err := e.tokenStore.RevokeAllRefreshFor(ctx, subject)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	accessRevoked, err := e.tokenStore.RevokeAllAccessFor(ctx, subject)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return refreshRevoked, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricLogoutAll)
	e.metricInc(MetricMassRevocation)
	e.emitAudit(ctx, auditEventLogoutAll, true, subject, "", nil, func() map[string]string {
		return map[string]string{
			"refresh_revoked": strconv.Itoa(refreshRevoked),
			"access_revoked":  strconv.Itoa(accessRevoked),
		}
	})

	return refreshRevoked, nil
}

/*
====================================
MAINTENANCE
====================================
*/

// PurgeExpired removes expired refresh records and denylist entries from
// the store. Intended to be called periodically by the host application.
func (e *Engine) PurgeExpired(ctx context.Context) (store.PurgeResult, error) {
	if e == nil || e.tokenStore == nil {
		return store.PurgeResult{}, ErrEngineNotReady
	}

	result, err := e.tokenStore.PurgeExpired(ctx, time.Now())
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return result, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricPurgeCompleted)
	e.emitAudit(ctx, auditEventPurgeCompleted, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"refresh_removed": strconv.Itoa(result.RefreshRemoved),
			"access_removed":  strconv.Itoa(result.AccessRemoved),
		}
	})

	return result, nil
}
