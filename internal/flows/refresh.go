package flows

import (
	"context"
	"errors"
)

// RefreshClaims is the subset of refresh-token claims the flow needs.
type RefreshClaims struct {
	AccountID string
	Phone     string
}

type RefreshMetrics struct {
	Success int
	Failure int
}

type RefreshErrors struct {
	EngineNotReady  error
	TokenInvalid    error
	AccountLocked   error
	AccountNotFound error
}

// RefreshDeps captures token refresh dependencies.
type RefreshDeps struct {
	ParseRefresh       func(token string) (RefreshClaims, error)
	FindAccountByPhone func(ctx context.Context, phone string) (Account, error)
	IsLocked           func(ctx context.Context, accountID string) (bool, error)
	IssueTokens        func(accountID, phone, role string) (TokenPair, error)
	MapBackendError    func(error) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Event   string
	Metrics RefreshMetrics
	Errors  RefreshErrors
}

// RunRefreshTokens mints a new pair from a valid refresh token. The account
// is reloaded so the new pair carries the current role, and a locked
// account cannot refresh.
func RunRefreshTokens(ctx context.Context, refreshToken string, deps RefreshDeps) (TokenPair, error) {
	if deps.MapBackendError == nil {
		deps.MapBackendError = func(err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.ParseRefresh == nil || deps.FindAccountByPhone == nil || deps.IsLocked == nil || deps.IssueTokens == nil {
		return TokenPair{}, deps.Errors.EngineNotReady
	}

	fail := func(accountID, phone string, err error) (TokenPair, error) {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Event, false, accountID, phone, "", err, nil)
		return TokenPair{}, err
	}

	claims, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		return fail("", "", deps.Errors.TokenInvalid)
	}

	account, err := deps.FindAccountByPhone(ctx, claims.Phone)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return fail(claims.AccountID, claims.Phone, deps.Errors.TokenInvalid)
		}
		return fail(claims.AccountID, claims.Phone, deps.MapBackendError(err))
	}
	if account.ID != claims.AccountID {
		return fail(claims.AccountID, claims.Phone, deps.Errors.TokenInvalid)
	}

	locked, err := deps.IsLocked(ctx, account.ID)
	if err != nil {
		return fail(account.ID, claims.Phone, deps.MapBackendError(err))
	}
	if locked {
		return fail(account.ID, claims.Phone, deps.Errors.AccountLocked)
	}

	pair, err := deps.IssueTokens(account.ID, account.Phone, account.Role)
	if err != nil {
		return fail(account.ID, claims.Phone, deps.MapBackendError(err))
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Event, true, account.ID, claims.Phone, "", nil, nil)
	return pair, nil
}
