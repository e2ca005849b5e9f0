package goPhoneAuth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/codes"
	"github.com/MrEthical07/goPhoneAuth/jwt"
)

// User-facing errors. These are expected outcomes of user input and are
// safe to render as form-level messages.
var (
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrDeliveryFailed means the SMS collaborator did not accept the code.
	// Re-invoking the issuing step retries.
	ErrDeliveryFailed = errors.New("code delivery failed")
	ErrNoActiveCode   = codes.ErrNoActiveCode
	// ErrCodeExpired is returned for a code past its expiry. Request a new one.
	ErrCodeExpired = codes.ErrExpired
	// ErrAttemptsExhausted is returned once MaxAttempts wrong codes were
	// submitted. Request a new one.
	ErrAttemptsExhausted = codes.ErrAttemptsExhausted
	// ErrInvalidCode matches every *InvalidCodeError.
	ErrInvalidCode = codes.ErrInvalidCode
	// ErrVerificationExpired means the finalize step came too late after
	// verification, or without one. The flow restarts from issuance.
	ErrVerificationExpired = errors.New("verification expired")
	// ErrInvalidCredentials is returned for both unknown phones and wrong
	// passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked carries no unlock time. Try again later.
	ErrAccountLocked          = errors.New("account locked, try again later")
	ErrCodeRequestRateLimited = errors.New("too many code requests")
	ErrTokenInvalid           = jwt.ErrTokenInvalid
	ErrInvalidInput           = errors.New("invalid input")
)

// InvalidCodeError is the concrete error for a wrong code while attempts
// remain. Its message includes the remaining count.
type InvalidCodeError = codes.InvalidCodeError

// RateLimitedError is returned once the code request budget is spent. It
// matches ErrCodeRequestRateLimited with errors.Is. RetryAfter is zero when
// the wait could not be read.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter <= 0 {
		return ErrCodeRequestRateLimited.Error()
	}
	return fmt.Sprintf("%s, retry in %s", ErrCodeRequestRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrCodeRequestRateLimited
}

// Collaborator sentinels. Account Directory implementations return these.
var (
	ErrAccountNotFound = errors.New("account not found")
)

// System faults.
var (
	// ErrUnavailable wraps every backend or configuration fault. Callers
	// should render a generic "service unavailable".
	ErrUnavailable    = errors.New("service unavailable")
	ErrEngineNotReady = errors.New("engine not ready")
)

var userFacing = []error{
	ErrAccountAlreadyExists,
	ErrDeliveryFailed,
	ErrNoActiveCode,
	ErrCodeExpired,
	ErrAttemptsExhausted,
	ErrInvalidCode,
	ErrVerificationExpired,
	ErrInvalidCredentials,
	ErrAccountLocked,
	ErrCodeRequestRateLimited,
	ErrTokenInvalid,
	ErrInvalidInput,
}

// IsUserFacing reports whether err belongs to the user-facing taxonomy.
// Faults wrapped in ErrUnavailable never do.
func IsUserFacing(err error) bool {
	if err == nil || errors.Is(err, ErrUnavailable) || errors.Is(err, ErrEngineNotReady) {
		return false
	}
	for _, target := range userFacing {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether repeating the same step (or re-issuing a code)
// can succeed without any other change.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrDeliveryFailed),
		errors.Is(err, ErrCodeExpired),
		errors.Is(err, ErrAttemptsExhausted),
		errors.Is(err, ErrInvalidCode),
		errors.Is(err, ErrAccountLocked),
		errors.Is(err, ErrCodeRequestRateLimited):
		return true
	default:
		return false
	}
}
