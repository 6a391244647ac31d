package goCookieAuth

import internalmetrics "github.com/MrEthical07/goCookieAuth/internal/metrics"

// MetricID identifies a counter or histogram in the in-process metrics.
type MetricID = internalmetrics.MetricID

// Metrics is the engine's lock-free counter set.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricLoginSuccess         = internalmetrics.MetricLoginSuccess
	MetricLoginFailure         = internalmetrics.MetricLoginFailure
	MetricAuthenticateSuccess  = internalmetrics.MetricAuthenticateSuccess
	MetricAuthenticateRejected = internalmetrics.MetricAuthenticateRejected
	// MetricRenewalSuccess counts rotations and fallbacks that wrote new cookies.
	MetricRenewalSuccess  = internalmetrics.MetricRenewalSuccess
	MetricRenewalFallback = internalmetrics.MetricRenewalFallback
	MetricRenewalConflict = internalmetrics.MetricRenewalConflict
	// MetricStoreError counts hard failures talking to Redis.
	MetricStoreError          = internalmetrics.MetricStoreError
	MetricCookiesCleared      = internalmetrics.MetricCookiesCleared
	MetricLogout              = internalmetrics.MetricLogout
	MetricSessionRevoked      = internalmetrics.MetricSessionRevoked
	MetricAuthenticateLatency = internalmetrics.MetricAuthenticateLatency
)

// NewMetrics creates a standalone Metrics instance.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(cfg)
}
