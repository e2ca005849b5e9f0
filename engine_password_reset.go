package goPhoneAuth

import (
	"context"

	"github.com/MrEthical07/goPhoneAuth/internal/flows"
)

// RequestPasswordReset sends a reset code when phone belongs to an account.
// It returns nil for unknown phones so callers cannot probe which numbers
// are registered.
//
// Errors: ErrInvalidInput, ErrCodeRequestRateLimited, ErrUnavailable, and
// ErrDeliveryFailed only when PasswordReset.RevealDeliveryFailure is set.
func (e *Engine) RequestPasswordReset(ctx context.Context, phone string) error {
	if err := e.input.phone(phone); err != nil {
		return err
	}
	return flows.RunRequestPasswordReset(ctx, phone, e.passwordResetDeps())
}

// VerifyResetCode checks a reset code. The account is not modified.
func (e *Engine) VerifyResetCode(ctx context.Context, phone, code string) error {
	if err := e.input.phone(phone); err != nil {
		return err
	}
	return flows.RunVerifyResetCode(ctx, phone, code, e.passwordResetDeps())
}

// ResetPassword replaces the password after a successful VerifyResetCode
// within the grace window and removes every reset record for phone. No
// tokens are issued; the user logs in afterwards.
func (e *Engine) ResetPassword(ctx context.Context, phone, newPassword string) error {
	if err := e.input.phone(phone); err != nil {
		return err
	}
	if err := e.input.password(newPassword); err != nil {
		return err
	}
	return flows.RunResetPassword(ctx, phone, newPassword, e.passwordResetDeps())
}

func (e *Engine) passwordResetDeps() flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		GraceWindow:           e.config.OTP.GraceWindow,
		RevealDeliveryFailure: e.config.PasswordReset.RevealDeliveryFailure,
		Now:                   e.now,
		ClientIPFromContext:   clientIPFromContext,
		CheckIssueThrottle:    e.checkIssueThrottle,
		FindAccountByPhone:    e.findAccountByPhone,
		UpdatePassword: func(ctx context.Context, phone, password string) error {
			return e.directory.UpdatePassword(ctx, phone, password)
		},
		MapBackendError: e.mapBackendError,
		Codes:           e.codeDeps(),
		MetricInc:       e.metricInc,
		EmitAudit:       e.emitAudit,
		Metrics: flows.PasswordResetMetrics{
			Request:  int(MetricPasswordResetRequest),
			Verified: int(MetricPasswordResetVerified),
			Success:  int(MetricPasswordResetSuccess),
			Failure:  int(MetricPasswordResetFailure),
		},
		Events: flows.PasswordResetEvents{
			Request:  auditEventPasswordResetRequest,
			Verify:   auditEventPasswordResetVerify,
			Complete: auditEventPasswordResetComplete,
		},
		Errors: flows.PasswordResetErrors{
			EngineNotReady:      ErrEngineNotReady,
			VerificationExpired: ErrVerificationExpired,
			AccountNotFound:     ErrAccountNotFound,
			DeliveryFailed:      ErrDeliveryFailed,
		},
	}
}

func (e *Engine) findAccountByPhone(ctx context.Context, phone string) (flows.Account, error) {
	account, err := e.directory.FindAccountByPhone(ctx, phone)
	if err != nil {
		return flows.Account{}, err
	}
	return toFlowAccount(account), nil
}
