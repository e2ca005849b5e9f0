package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/codes"
)

// RegistrationMetrics carries metric IDs used by the registration flow.
type RegistrationMetrics struct {
	Started   int
	Verified  int
	Completed int
	Duplicate int
}

// RegistrationEvents carries audit event names used by the registration flow.
type RegistrationEvents struct {
	Begin    string
	Verify   string
	Complete string
}

// RegistrationErrors carries host-level sentinel errors.
type RegistrationErrors struct {
	EngineNotReady       error
	AccountAlreadyExists error
	VerificationExpired  error
}

// RegistrationDeps captures registration dependencies.
type RegistrationDeps struct {
	GraceWindow time.Duration

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string

	CheckIssueThrottle                func(ctx context.Context, purpose codes.Purpose, phone, ip string) error
	CreateUnverifiedAccount           func(ctx context.Context, phone, fullName string) (string, error)
	MarkPhoneVerifiedAndCreateProfile func(ctx context.Context, phone string) error
	SetPassword                       func(ctx context.Context, phone, password, email string) (Account, error)
	IsAccountConflict                 func(error) bool
	IssueTokens                       func(accountID, phone, role string) (TokenPair, error)
	MapBackendError                   func(error) error

	Codes CodeDeps

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegistrationMetrics
	Events  RegistrationEvents
	Errors  RegistrationErrors
}

func normalizeRegistrationDeps(deps *RegistrationDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = emptyContextValue
	}
	if deps.CheckIssueThrottle == nil {
		deps.CheckIssueThrottle = noopThrottle
	}
	if deps.IsAccountConflict == nil {
		deps.IsAccountConflict = func(error) bool { return false }
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

const purposeRegistration = string(codes.PurposeRegistration)

// RunBeginRegistration creates (or re-opens) the unverified account and
// issues a registration code. Calling it again at any stage supersedes the
// previous code.
func RunBeginRegistration(ctx context.Context, phone, fullName string, deps RegistrationDeps) error {
	normalizeRegistrationDeps(&deps)

	if deps.CreateUnverifiedAccount == nil || !deps.Codes.ready() {
		return deps.Errors.EngineNotReady
	}

	if err := deps.CheckIssueThrottle(ctx, codes.PurposeRegistration, phone, deps.ClientIPFromContext(ctx)); err != nil {
		deps.EmitAudit(ctx, deps.Events.Begin, false, "", phone, purposeRegistration, err, func() map[string]string {
			return map[string]string{"reason": "throttled"}
		})
		return err
	}

	accountID, err := deps.CreateUnverifiedAccount(ctx, phone, fullName)
	if err != nil {
		if deps.IsAccountConflict(err) {
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, deps.Events.Begin, false, "", phone, purposeRegistration, deps.Errors.AccountAlreadyExists, nil)
			return deps.Errors.AccountAlreadyExists
		}
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Begin, false, "", phone, purposeRegistration, mapped, nil)
		return mapped
	}

	if err := deps.Codes.IssueCode(ctx, phone, codes.PurposeRegistration); err != nil {
		deps.EmitAudit(ctx, deps.Events.Begin, false, accountID, phone, purposeRegistration, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Started)
	deps.EmitAudit(ctx, deps.Events.Begin, true, accountID, phone, purposeRegistration, nil, nil)
	return nil
}

// RunVerifyRegistrationCode checks the submitted code and marks the phone as
// verified in the directory. The code is only consumed once the directory
// update succeeds, so a failed update can be retried with the same code.
func RunVerifyRegistrationCode(ctx context.Context, phone, code string, deps RegistrationDeps) error {
	normalizeRegistrationDeps(&deps)

	if deps.MarkPhoneVerifiedAndCreateProfile == nil || !deps.Codes.ready() {
		return deps.Errors.EngineNotReady
	}

	var markErr error
	err := deps.Codes.VerifyCode(ctx, phone, codes.PurposeRegistration, code, func(ctx context.Context) error {
		markErr = deps.MarkPhoneVerifiedAndCreateProfile(ctx, phone)
		return markErr
	})
	if markErr != nil {
		mapped := deps.MapBackendError(markErr)
		deps.EmitAudit(ctx, deps.Events.Verify, false, "", phone, purposeRegistration, mapped, func() map[string]string {
			return map[string]string{"stage": "mark_verified"}
		})
		return mapped
	}
	if err != nil {
		deps.EmitAudit(ctx, deps.Events.Verify, false, "", phone, purposeRegistration, err, nil)
		return err
	}

	deps.MetricInc(deps.Metrics.Verified)
	deps.EmitAudit(ctx, deps.Events.Verify, true, "", phone, purposeRegistration, nil, nil)
	return nil
}

// RunCompleteRegistration sets the password, mints tokens and removes every
// registration record for phone. It requires a successful verification no
// older than the grace window.
func RunCompleteRegistration(ctx context.Context, phone, password, email string, deps RegistrationDeps) (TokenPair, error) {
	normalizeRegistrationDeps(&deps)

	if deps.SetPassword == nil || deps.IssueTokens == nil || !deps.Codes.ready() {
		return TokenPair{}, deps.Errors.EngineNotReady
	}

	if err := requireRecentVerification(
		ctx, phone, codes.PurposeRegistration,
		deps.Codes.FindLatestUsedCode,
		deps.Now(), deps.GraceWindow,
		deps.Errors.VerificationExpired, deps.MapBackendError,
	); err != nil {
		deps.EmitAudit(ctx, deps.Events.Complete, false, "", phone, purposeRegistration, err, nil)
		return TokenPair{}, err
	}

	account, err := deps.SetPassword(ctx, phone, password, email)
	if err != nil {
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Complete, false, "", phone, purposeRegistration, mapped, func() map[string]string {
			return map[string]string{"stage": "set_password"}
		})
		return TokenPair{}, mapped
	}

	pair, err := deps.IssueTokens(account.ID, account.Phone, account.Role)
	if err != nil {
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Complete, false, account.ID, phone, purposeRegistration, mapped, func() map[string]string {
			return map[string]string{"stage": "issue_tokens"}
		})
		return TokenPair{}, mapped
	}

	if err := deps.Codes.DeleteCodes(ctx, phone, codes.PurposeRegistration); err != nil {
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Complete, false, account.ID, phone, purposeRegistration, mapped, func() map[string]string {
			return map[string]string{"stage": "cleanup"}
		})
		return TokenPair{}, mapped
	}

	deps.MetricInc(deps.Metrics.Completed)
	deps.EmitAudit(ctx, deps.Events.Complete, true, account.ID, phone, purposeRegistration, nil, nil)
	return pair, nil
}
