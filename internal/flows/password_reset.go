package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/codes"
)

type PasswordResetMetrics struct {
	Request  int
	Verified int
	Success  int
	Failure  int
}

type PasswordResetEvents struct {
	Request  string
	Verify   string
	Complete string
}

type PasswordResetErrors struct {
	EngineNotReady      error
	VerificationExpired error
	AccountNotFound     error
	DeliveryFailed      error
}

// PasswordResetDeps captures password reset dependencies.
type PasswordResetDeps struct {
	GraceWindow time.Duration
	// RevealDeliveryFailure surfaces SMS delivery failures from the request
	// step. Off by default: a delivery failure can only happen for a known
	// phone, so reporting it distinguishes registered numbers.
	RevealDeliveryFailure bool

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string

	CheckIssueThrottle func(ctx context.Context, purpose codes.Purpose, phone, ip string) error
	FindAccountByPhone func(ctx context.Context, phone string) (Account, error)
	UpdatePassword     func(ctx context.Context, phone, password string) error
	MapBackendError    func(error) error

	Codes CodeDeps

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = emptyContextValue
	}
	if deps.CheckIssueThrottle == nil {
		deps.CheckIssueThrottle = noopThrottle
	}
	if deps.MapBackendError == nil {
		deps.MapBackendError = func(err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}

const purposePasswordReset = string(codes.PurposePasswordReset)

// RunRequestPasswordReset issues a reset code when phone belongs to an
// account. Unknown phones get the same nil result and no code is generated.
// The issue throttle runs before the lookup so both cases count alike.
func RunRequestPasswordReset(ctx context.Context, phone string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.FindAccountByPhone == nil || !deps.Codes.ready() {
		return deps.Errors.EngineNotReady
	}

	if err := deps.CheckIssueThrottle(ctx, codes.PurposePasswordReset, phone, deps.ClientIPFromContext(ctx)); err != nil {
		deps.EmitAudit(ctx, deps.Events.Request, false, "", phone, purposePasswordReset, err, func() map[string]string {
			return map[string]string{"reason": "throttled"}
		})
		return err
	}

	account, err := deps.FindAccountByPhone(ctx, phone)
	if err != nil {
		if isContextError(err) {
			return err
		}
		if errors.Is(err, deps.Errors.AccountNotFound) {
			deps.MetricInc(deps.Metrics.Request)
			deps.EmitAudit(ctx, deps.Events.Request, true, "", phone, purposePasswordReset, nil, func() map[string]string {
				return map[string]string{"enumeration_safe": "true"}
			})
			return nil
		}
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Request, false, "", phone, purposePasswordReset, mapped, nil)
		return mapped
	}

	if err := deps.Codes.IssueCode(ctx, phone, codes.PurposePasswordReset); err != nil {
		deps.EmitAudit(ctx, deps.Events.Request, false, account.ID, phone, purposePasswordReset, err, nil)
		if errors.Is(err, deps.Errors.DeliveryFailed) && !deps.RevealDeliveryFailure {
			deps.MetricInc(deps.Metrics.Request)
			return nil
		}
		return err
	}

	deps.MetricInc(deps.Metrics.Request)
	deps.EmitAudit(ctx, deps.Events.Request, true, account.ID, phone, purposePasswordReset, nil, nil)
	return nil
}

// RunVerifyResetCode checks a reset code. It does not touch the account.
func RunVerifyResetCode(ctx context.Context, phone, code string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if !deps.Codes.ready() {
		return deps.Errors.EngineNotReady
	}

	if err := deps.Codes.VerifyCode(ctx, phone, codes.PurposePasswordReset, code, nil); err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Verify, false, "", phone, purposePasswordReset, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Verified)
	deps.EmitAudit(ctx, deps.Events.Verify, true, "", phone, purposePasswordReset, nil, nil)
	return nil
}

// RunResetPassword replaces the password after a recent successful reset
// verification, then removes every reset record for phone.
func RunResetPassword(ctx context.Context, phone, newPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.UpdatePassword == nil || !deps.Codes.ready() {
		return deps.Errors.EngineNotReady
	}

	if err := requireRecentVerification(
		ctx, phone, codes.PurposePasswordReset,
		deps.Codes.FindLatestUsedCode,
		deps.Now(), deps.GraceWindow,
		deps.Errors.VerificationExpired, deps.MapBackendError,
	); err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Complete, false, "", phone, purposePasswordReset, err, nil)
		return err
	}

	if err := deps.UpdatePassword(ctx, phone, newPassword); err != nil {
		mapped := deps.MapBackendError(err)
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Complete, false, "", phone, purposePasswordReset, mapped, func() map[string]string {
			return map[string]string{"stage": "update_password"}
		})
		return mapped
	}

	if err := deps.Codes.DeleteCodes(ctx, phone, codes.PurposePasswordReset); err != nil {
		mapped := deps.MapBackendError(err)
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Complete, false, "", phone, purposePasswordReset, mapped, func() map[string]string {
			return map[string]string{"stage": "cleanup"}
		})
		return mapped
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Complete, true, "", phone, purposePasswordReset, nil, nil)
	return nil
}
