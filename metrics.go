package goPhoneAuth

import "github.com/MrEthical07/goPhoneAuth/internal/metrics"

// Metric identifiers as they appear in [MetricsSnapshot].
const (
	MetricRegistrationStarted   = metrics.MetricRegistrationStarted
	MetricRegistrationVerified  = metrics.MetricRegistrationVerified
	MetricRegistrationCompleted = metrics.MetricRegistrationCompleted
	MetricRegistrationDuplicate = metrics.MetricRegistrationDuplicate
	MetricCodeIssued            = metrics.MetricCodeIssued
	MetricCodeDeliveryFailed    = metrics.MetricCodeDeliveryFailed
	MetricCodeIssueRateLimited  = metrics.MetricCodeIssueRateLimited
	MetricCodeVerifySuccess     = metrics.MetricCodeVerifySuccess
	MetricCodeVerifyInvalid     = metrics.MetricCodeVerifyInvalid
	MetricCodeExpired           = metrics.MetricCodeExpired
	MetricCodeAttemptsExhausted = metrics.MetricCodeAttemptsExhausted
	MetricCodeNoActive          = metrics.MetricCodeNoActive
	MetricPasswordResetRequest  = metrics.MetricPasswordResetRequest
	MetricPasswordResetVerified = metrics.MetricPasswordResetVerified
	MetricPasswordResetSuccess  = metrics.MetricPasswordResetSuccess
	MetricPasswordResetFailure  = metrics.MetricPasswordResetFailure
	MetricLoginSuccess          = metrics.MetricLoginSuccess
	MetricLoginFailure          = metrics.MetricLoginFailure
	MetricLoginLocked           = metrics.MetricLoginLocked
	MetricTokenRefreshSuccess   = metrics.MetricTokenRefreshSuccess
	MetricTokenRefreshFailure   = metrics.MetricTokenRefreshFailure
	MetricBackendUnavailable    = metrics.MetricBackendUnavailable
	MetricAuditDropped          = metrics.MetricAuditDropped
	MetricVerifyLatency         = metrics.MetricVerifyLatency
	MetricLoginLatency          = metrics.MetricLoginLatency

	MetricIDCount        = metrics.MetricIDCount
	HistogramBucketCount = metrics.HistogramBucketCount
)

// IsLatencyMetric reports whether id is exported as a histogram.
func IsLatencyMetric(id MetricID) bool {
	return metrics.IsLatency(id)
}
