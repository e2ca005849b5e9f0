package goPhoneAuth

import (
	"context"

	"github.com/MrEthical07/goPhoneAuth/internal/flows"
)

// BeginRegistration creates (or re-opens) an unverified account for phone
// and sends a registration code. Calling it again at any stage, including
// after verification, supersedes the previous code.
//
// Errors: ErrInvalidInput, ErrAccountAlreadyExists, ErrCodeRequestRateLimited,
// ErrDeliveryFailed, ErrUnavailable.
func (e *Engine) BeginRegistration(ctx context.Context, phone, fullName string) error {
	if err := e.input.phone(phone); err != nil {
		return err
	}
	if err := e.input.fullName(fullName); err != nil {
		return err
	}
	return flows.RunBeginRegistration(ctx, phone, fullName, e.registrationDeps())
}

// VerifyRegistrationCode checks code against the latest registration code
// for phone and marks the phone as verified.
//
// Errors: ErrInvalidInput, ErrNoActiveCode, ErrCodeExpired,
// ErrAttemptsExhausted, *InvalidCodeError (matches ErrInvalidCode),
// ErrUnavailable.
func (e *Engine) VerifyRegistrationCode(ctx context.Context, phone, code string) error {
	if err := e.input.phone(phone); err != nil {
		return err
	}
	return flows.RunVerifyRegistrationCode(ctx, phone, code, e.registrationDeps())
}

// CompleteRegistration sets the password and returns the first token pair.
// It must follow a successful VerifyRegistrationCode within the configured
// grace window; otherwise ErrVerificationExpired is returned and the flow
// restarts from BeginRegistration.
func (e *Engine) CompleteRegistration(ctx context.Context, phone, password, email string) (*TokenPair, error) {
	if err := e.input.phone(phone); err != nil {
		return nil, err
	}
	if err := e.input.password(password); err != nil {
		return nil, err
	}
	if err := e.input.email(email); err != nil {
		return nil, err
	}

	pair, err := flows.RunCompleteRegistration(ctx, phone, password, email, e.registrationDeps())
	if err != nil {
		return nil, err
	}
	return toTokenPair(pair), nil
}

func (e *Engine) registrationDeps() flows.RegistrationDeps {
	return flows.RegistrationDeps{
		GraceWindow:         e.config.OTP.GraceWindow,
		Now:                 e.now,
		ClientIPFromContext: clientIPFromContext,
		CheckIssueThrottle:  e.checkIssueThrottle,
		CreateUnverifiedAccount: func(ctx context.Context, phone, fullName string) (string, error) {
			return e.directory.CreateUnverifiedAccount(ctx, phone, fullName)
		},
		MarkPhoneVerifiedAndCreateProfile: func(ctx context.Context, phone string) error {
			return e.directory.MarkPhoneVerifiedAndCreateProfile(ctx, phone)
		},
		SetPassword: func(ctx context.Context, phone, password, email string) (flows.Account, error) {
			account, err := e.directory.SetPassword(ctx, phone, password, email)
			if err != nil {
				return flows.Account{}, err
			}
			return toFlowAccount(account), nil
		},
		IsAccountConflict: isAccountConflict,
		IssueTokens:       e.issueTokens,
		MapBackendError:   e.mapBackendError,
		Codes:             e.codeDeps(),
		MetricInc:         e.metricInc,
		EmitAudit:         e.emitAudit,
		Metrics: flows.RegistrationMetrics{
			Started:   int(MetricRegistrationStarted),
			Verified:  int(MetricRegistrationVerified),
			Completed: int(MetricRegistrationCompleted),
			Duplicate: int(MetricRegistrationDuplicate),
		},
		Events: flows.RegistrationEvents{
			Begin:    auditEventRegistrationBegin,
			Verify:   auditEventRegistrationVerify,
			Complete: auditEventRegistrationComplete,
		},
		Errors: flows.RegistrationErrors{
			EngineNotReady:       ErrEngineNotReady,
			AccountAlreadyExists: ErrAccountAlreadyExists,
			VerificationExpired:  ErrVerificationExpired,
		},
	}
}

func toFlowAccount(a Account) flows.Account {
	return flows.Account{
		ID:            a.ID,
		Phone:         a.Phone,
		FullName:      a.FullName,
		Email:         a.Email,
		Role:          a.Role,
		PhoneVerified: a.PhoneVerified,
	}
}
