package internaldefs

import (
	goPhoneAuth "github.com/MrEthical07/goPhoneAuth"
)

type CounterDef struct {
	ID   goPhoneAuth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goPhoneAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. Latency ids are histograms and
// do not appear here.
var CounterDefs = []CounterDef{
	{ID: goPhoneAuth.MetricRegistrationStarted, Name: "phoneauth_registration_started_total", Help: "Registrations that reached the code-sent state."},
	{ID: goPhoneAuth.MetricRegistrationVerified, Name: "phoneauth_registration_verified_total", Help: "Registrations whose phone was verified."},
	{ID: goPhoneAuth.MetricRegistrationCompleted, Name: "phoneauth_registration_completed_total", Help: "Completed registrations."},
	{ID: goPhoneAuth.MetricRegistrationDuplicate, Name: "phoneauth_registration_duplicate_total", Help: "Registrations rejected because the account exists."},
	{ID: goPhoneAuth.MetricCodeIssued, Name: "phoneauth_code_issued_total", Help: "One-time codes issued and accepted by the SMS sender."},
	{ID: goPhoneAuth.MetricCodeDeliveryFailed, Name: "phoneauth_code_delivery_failed_total", Help: "One-time codes the SMS sender did not accept."},
	{ID: goPhoneAuth.MetricCodeIssueRateLimited, Name: "phoneauth_code_issue_rate_limited_total", Help: "Code requests rejected by the issue throttle."},
	{ID: goPhoneAuth.MetricCodeVerifySuccess, Name: "phoneauth_code_verify_success_total", Help: "Successful code verifications."},
	{ID: goPhoneAuth.MetricCodeVerifyInvalid, Name: "phoneauth_code_verify_invalid_total", Help: "Wrong code submissions."},
	{ID: goPhoneAuth.MetricCodeExpired, Name: "phoneauth_code_expired_total", Help: "Submissions against an expired code."},
	{ID: goPhoneAuth.MetricCodeAttemptsExhausted, Name: "phoneauth_code_attempts_exhausted_total", Help: "Submissions against a code with no attempts left."},
	{ID: goPhoneAuth.MetricCodeNoActive, Name: "phoneauth_code_no_active_total", Help: "Submissions with no active code."},
	{ID: goPhoneAuth.MetricPasswordResetRequest, Name: "phoneauth_password_reset_request_total", Help: "Password reset requests, including unknown phones."},
	{ID: goPhoneAuth.MetricPasswordResetVerified, Name: "phoneauth_password_reset_verified_total", Help: "Verified password reset codes."},
	{ID: goPhoneAuth.MetricPasswordResetSuccess, Name: "phoneauth_password_reset_success_total", Help: "Completed password resets."},
	{ID: goPhoneAuth.MetricPasswordResetFailure, Name: "phoneauth_password_reset_failure_total", Help: "Failed password reset completions."},
	{ID: goPhoneAuth.MetricLoginSuccess, Name: "phoneauth_login_success_total", Help: "Successful logins."},
	{ID: goPhoneAuth.MetricLoginFailure, Name: "phoneauth_login_failure_total", Help: "Logins rejected with invalid credentials."},
	{ID: goPhoneAuth.MetricLoginLocked, Name: "phoneauth_login_locked_total", Help: "Logins rejected because the account is locked."},
	{ID: goPhoneAuth.MetricTokenRefreshSuccess, Name: "phoneauth_token_refresh_success_total", Help: "Successful token refreshes."},
	{ID: goPhoneAuth.MetricTokenRefreshFailure, Name: "phoneauth_token_refresh_failure_total", Help: "Rejected token refreshes."},
	{ID: goPhoneAuth.MetricBackendUnavailable, Name: "phoneauth_backend_unavailable_total", Help: "Operations failed by a store or directory fault."},
	{ID: goPhoneAuth.MetricAuditDropped, Name: "phoneauth_audit_dropped_events_total", Help: "Audit events dropped by a full dispatcher buffer."},
}

var HistogramDefs = []HistogramDef{
	{ID: goPhoneAuth.MetricVerifyLatency, Name: "phoneauth_code_verify_latency_seconds", Help: "Code verification latency."},
	{ID: goPhoneAuth.MetricLoginLatency, Name: "phoneauth_login_latency_seconds", Help: "Login latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's
// latency buckets.
var HistogramBounds = [goPhoneAuth.HistogramBucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable in instrument
// names.
var HistogramBoundSuffix = [goPhoneAuth.HistogramBucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// Buckets is one histogram's bucket counts.
type Buckets = [goPhoneAuth.HistogramBucketCount]uint64

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) Buckets {
	var out Buckets
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw Buckets) Buckets {
	var out Buckets
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
