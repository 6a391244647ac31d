package internaldefs

import (
	goCookieAuth "github.com/MrEthical07/goCookieAuth"
)

// Def names one exported metric.
type Def struct {
	ID   goCookieAuth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for events lost to dispatcher backpressure.
const AuditDroppedName = "gocookieauth_audit_dropped_total"

// CounterDefs lists every counter in export order.
var CounterDefs = []Def{
	{goCookieAuth.MetricLoginSuccess, "gocookieauth_login_success_total", "Sessions opened by Login."},
	{goCookieAuth.MetricLoginFailure, "gocookieauth_login_failure_total", "Login calls that failed."},
	{goCookieAuth.MetricAuthenticateSuccess, "gocookieauth_authenticate_success_total", "Requests authenticated."},
	{goCookieAuth.MetricAuthenticateRejected, "gocookieauth_authenticate_rejected_total", "Requests rejected, including anonymous ones."},
	{goCookieAuth.MetricRenewalSuccess, "gocookieauth_renewal_success_total", "Renewals that wrote a new token pair."},
	{goCookieAuth.MetricRenewalFallback, "gocookieauth_renewal_fallback_total", "Renewals that re-created a session from refresh claims."},
	{goCookieAuth.MetricRenewalConflict, "gocookieauth_renewal_conflict_total", "Renewals that lost a concurrent rotation."},
	{goCookieAuth.MetricStoreError, "gocookieauth_store_error_total", "Session store failures."},
	{goCookieAuth.MetricCookiesCleared, "gocookieauth_cookies_cleared_total", "Rejections that cleared the token cookies."},
	{goCookieAuth.MetricLogout, "gocookieauth_logout_total", "Logout calls."},
	{goCookieAuth.MetricSessionRevoked, "gocookieauth_session_revoked_total", "Sessions deleted on logout."},
}

// HistogramDefs lists every latency histogram.
var HistogramDefs = []Def{
	{goCookieAuth.MetricAuthenticateLatency, "gocookieauth_authenticate_latency_seconds", "Authenticate latency, renewals included."},
}

// BucketCount matches the engine's fixed histogram layout.
const BucketCount = 8

// HistogramBounds are the upper bounds in seconds, Prometheus style.
var HistogramBounds = [BucketCount]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// HistogramBoundSuffix are the same bounds usable inside instrument names.
var HistogramBoundSuffix = [BucketCount]string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// CumulativeBuckets converts per-bucket counts into running totals. Missing
// trailing buckets count as zero.
func CumulativeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
