package goPhoneAuth

import (
	"context"

	"github.com/MrEthical07/goPhoneAuth/internal/flows"
)

// Login authenticates phone and password. The client IP and device are
// read from ctx (see WithClientIP and WithDevice) and recorded with the
// attempt.
//
// An unknown phone and a wrong password both return ErrInvalidCredentials.
// ErrAccountLocked is returned whenever the directory reports a lock,
// before the password is checked.
func (e *Engine) Login(ctx context.Context, phone, password string) (*TokenPair, error) {
	return e.LoginWithClient(ctx, phone, password, clientIPFromContext(ctx), deviceFromContext(ctx))
}

// LoginWithClient is Login with an explicit client IP and device.
func (e *Engine) LoginWithClient(ctx context.Context, phone, password, ip, device string) (*TokenPair, error) {
	// Shape checks only; a malformed phone is reported like an unknown one.
	if e.input.phone(phone) != nil || password == "" {
		e.metricInc(int(MetricLoginFailure))
		e.emitAudit(ctx, auditEventLoginFailure, false, "", phone, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	pair, err := flows.RunLogin(ctx, phone, password, ip, device, e.loginDeps())
	if err != nil {
		return nil, err
	}
	return toTokenPair(pair), nil
}

func (e *Engine) loginDeps() flows.LoginDeps {
	return flows.LoginDeps{
		Now:                e.now,
		FindAccountByPhone: e.findAccountByPhone,
		IsLocked: func(ctx context.Context, accountID string) (bool, error) {
			return e.directory.IsLocked(ctx, accountID)
		},
		ValidatePassword: func(ctx context.Context, account flows.Account, password string) (bool, error) {
			return e.directory.ValidatePassword(ctx, fromFlowAccount(account), password)
		},
		RecordLoginAttempt: func(ctx context.Context, accountID, ip, device string, success bool) error {
			return e.directory.RecordLoginAttempt(ctx, accountID, ip, device, success)
		},
		IssueTokens:     e.issueTokens,
		MapBackendError: e.mapBackendError,
		MetricInc:       e.metricInc,
		MetricObserve:   e.metricObserve,
		EmitAudit:       e.emitAudit,
		Metrics: flows.LoginMetrics{
			Success: int(MetricLoginSuccess),
			Failure: int(MetricLoginFailure),
			Locked:  int(MetricLoginLocked),
			Latency: int(MetricLoginLatency),
		},
		Events: flows.LoginEvents{
			Success: auditEventLoginSuccess,
			Failure: auditEventLoginFailure,
			Locked:  auditEventLoginLocked,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			AccountLocked:      ErrAccountLocked,
			AccountNotFound:    ErrAccountNotFound,
		},
	}
}

func fromFlowAccount(a flows.Account) Account {
	return Account{
		ID:            a.ID,
		Phone:         a.Phone,
		FullName:      a.FullName,
		Email:         a.Email,
		Role:          a.Role,
		PhoneVerified: a.PhoneVerified,
	}
}
