package internaldefs

import (
	bearauth "github.com/bearauth/bearauth"
)

// CounterDef defines a public type used by bearauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   bearauth.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by bearauth APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   bearauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: bearauth.MetricLoginSuccess, Name: "bearauth_login_success_total", Help: "Successful token issuances."},
	{ID: bearauth.MetricLoginLimitExceeded, Name: "bearauth_login_limit_exceeded_total", Help: "Logins denied by the per-principal token limit."},
	{ID: bearauth.MetricAuthenticateSuccess, Name: "bearauth_authenticate_success_total", Help: "Successful token validations."},
	{ID: bearauth.MetricAuthenticateFailure, Name: "bearauth_authenticate_failure_total", Help: "Failed token validations."},
	{ID: bearauth.MetricPrincipalInactive, Name: "bearauth_principal_inactive_total", Help: "Requests denied for an inactive or deleted principal."},
	{ID: bearauth.MetricTokenRenewed, Name: "bearauth_token_renewed_total", Help: "Sliding-expiry renewals persisted."},
	{ID: bearauth.MetricRenewalWriteFailed, Name: "bearauth_renewal_write_failed_total", Help: "Sliding-expiry renewal writes that failed."},
	{ID: bearauth.MetricExpiredCleanup, Name: "bearauth_expired_cleanup_total", Help: "Expired tokens removed by lazy cleanup."},
	{ID: bearauth.MetricRotationSuccess, Name: "bearauth_rotation_success_total", Help: "Successful refresh rotations."},
	{ID: bearauth.MetricRotationFailure, Name: "bearauth_rotation_failure_total", Help: "Failed refresh rotations."},
	{ID: bearauth.MetricReuseDetected, Name: "bearauth_reuse_detected_total", Help: "Refresh token reuses detected (family revoked)."},
	{ID: bearauth.MetricRotationThrottled, Name: "bearauth_rotation_throttled_total", Help: "Rate-limited refresh rotations."},
	{ID: bearauth.MetricLogout, Name: "bearauth_logout_total", Help: "Single-token logout operations."},
	{ID: bearauth.MetricLogoutAll, Name: "bearauth_logout_all_total", Help: "Logout-all operations."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: bearauth.MetricAuthenticateLatency, Name: "bearauth_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
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
