package goPhoneAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/goPhoneAuth/internal/logx"
)

const (
	auditEventRegistrationBegin     = "registration_begin"
	auditEventRegistrationVerify    = "registration_verify"
	auditEventRegistrationComplete  = "registration_complete"
	auditEventPasswordResetRequest  = "password_reset_request"
	auditEventPasswordResetVerify   = "password_reset_verify"
	auditEventPasswordResetComplete = "password_reset_complete"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginLocked           = "login_locked"
	auditEventCodeIssueRateLimited  = "code_issue_rate_limited"
	auditEventTokenRefresh          = "token_refresh"
)

// AuditErrorCode is the stable, low-cardinality error label written to
// audit events in place of raw error strings.
type AuditErrorCode string

const (
	auditErrAccountExists       AuditErrorCode = "account_exists"
	auditErrDeliveryFailed      AuditErrorCode = "delivery_failed"
	auditErrNoActiveCode        AuditErrorCode = "no_active_code"
	auditErrCodeExpired         AuditErrorCode = "code_expired"
	auditErrAttemptsExhausted   AuditErrorCode = "attempts_exhausted"
	auditErrInvalidCode         AuditErrorCode = "invalid_code"
	auditErrVerificationExpired AuditErrorCode = "verification_expired"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked       AuditErrorCode = "account_locked"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrInvalidInput        AuditErrorCode = "invalid_input"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	phone string,
	purpose string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Subject:   logx.MaskPhone(phone),
		Purpose:   purpose,
		IP:        clientIPFromContext(ctx),
		Device:    deviceFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrAccountAlreadyExists):
		return auditErrAccountExists
	case errors.Is(err, ErrDeliveryFailed):
		return auditErrDeliveryFailed
	case errors.Is(err, ErrNoActiveCode):
		return auditErrNoActiveCode
	case errors.Is(err, ErrCodeExpired):
		return auditErrCodeExpired
	case errors.Is(err, ErrAttemptsExhausted):
		return auditErrAttemptsExhausted
	case errors.Is(err, ErrInvalidCode):
		return auditErrInvalidCode
	case errors.Is(err, ErrVerificationExpired):
		return auditErrVerificationExpired
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrCodeRequestRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	default:
		return auditErrInternal
	}
}
