package internaldefs

import (
	fxauth "github.com/Qonteh/fxauth"
)

// CounterDef defines a public type used by fxauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   fxauth.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by fxauth APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   fxauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: fxauth.MetricLoginSuccess, Name: "fxauth_login_success_total", Help: "Successful login attempts."},
	{ID: fxauth.MetricLoginFailure, Name: "fxauth_login_failure_total", Help: "Failed login attempts."},
	{ID: fxauth.MetricLoginRateLimited, Name: "fxauth_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: fxauth.MetricRefreshSuccess, Name: "fxauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: fxauth.MetricRefreshFailure, Name: "fxauth_refresh_failure_total", Help: "Failed refresh rotations."},
	{ID: fxauth.MetricRefreshReuseDetected, Name: "fxauth_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: fxauth.MetricRefreshRateLimited, Name: "fxauth_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: fxauth.MetricValidateSuccess, Name: "fxauth_validate_success_total", Help: "Successful access token validations."},
	{ID: fxauth.MetricValidateFailure, Name: "fxauth_validate_failure_total", Help: "Failed access token validations."},
	{ID: fxauth.MetricValidateRevoked, Name: "fxauth_validate_revoked_total", Help: "Validations rejected by the revocation denylist."},
	{ID: fxauth.MetricLogout, Name: "fxauth_logout_total", Help: "Single-session logout operations."},
	{ID: fxauth.MetricLogoutAll, Name: "fxauth_logout_all_total", Help: "Logout-all operations."},
	{ID: fxauth.MetricMassRevocation, Name: "fxauth_mass_revocation_total", Help: "Subject-wide revocation sweeps."},
	{ID: fxauth.MetricPurgeCompleted, Name: "fxauth_purge_completed_total", Help: "Completed expired-record purges."},
	{ID: fxauth.MetricStoreUnavailable, Name: "fxauth_store_unavailable_total", Help: "Operations failed by token store unavailability."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: fxauth.MetricValidateLatency, Name: "fxauth_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
