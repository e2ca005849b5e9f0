package flows

import (
	"context"
	"errors"
	"time"
)

type LoginMetrics struct {
	Success int
	Failure int
	Locked  int
	Latency int
}

type LoginEvents struct {
	Success string
	Failure string
	Locked  string
}

type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountLocked      error
	AccountNotFound    error
}

// LoginDeps captures login dependencies. Lockout policy lives entirely in
// the directory; IsLocked is consulted on every attempt.
type LoginDeps struct {
	Now func() time.Time

	FindAccountByPhone func(ctx context.Context, phone string) (Account, error)
	IsLocked           func(ctx context.Context, accountID string) (bool, error)
	ValidatePassword   func(ctx context.Context, account Account, password string) (bool, error)
	RecordLoginAttempt func(ctx context.Context, accountID, ip, device string, success bool) error
	IssueTokens        func(accountID, phone, role string) (TokenPair, error)
	MapBackendError    func(error) error

	MetricInc     func(int)
	MetricObserve func(int, time.Duration)
	EmitAudit     AuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MapBackendError == nil {
		deps.MapBackendError = func(err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.MetricObserve == nil {
		deps.MetricObserve = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}

// RunLogin authenticates phone+password. An unknown phone and a wrong
// password return the same InvalidCredentials error value.
func RunLogin(ctx context.Context, phone, password, ip, device string, deps LoginDeps) (TokenPair, error) {
	normalizeLoginDeps(&deps)

	if deps.FindAccountByPhone == nil ||
		deps.IsLocked == nil ||
		deps.ValidatePassword == nil ||
		deps.RecordLoginAttempt == nil ||
		deps.IssueTokens == nil {
		return TokenPair{}, deps.Errors.EngineNotReady
	}

	started := deps.Now()
	defer func() {
		deps.MetricObserve(deps.Metrics.Latency, deps.Now().Sub(started))
	}()

	meta := func() map[string]string {
		return map[string]string{"ip": ip, "device": device}
	}

	account, err := deps.FindAccountByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			deps.MetricInc(deps.Metrics.Failure)
			deps.EmitAudit(ctx, deps.Events.Failure, false, "", phone, "", deps.Errors.InvalidCredentials, meta)
			return TokenPair{}, deps.Errors.InvalidCredentials
		}
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", phone, "", mapped, meta)
		return TokenPair{}, mapped
	}

	locked, err := deps.IsLocked(ctx, account.ID)
	if err != nil {
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Failure, false, account.ID, phone, "", mapped, meta)
		return TokenPair{}, mapped
	}
	if locked {
		deps.MetricInc(deps.Metrics.Locked)
		deps.EmitAudit(ctx, deps.Events.Locked, false, account.ID, phone, "", deps.Errors.AccountLocked, meta)
		return TokenPair{}, deps.Errors.AccountLocked
	}

	ok, err := deps.ValidatePassword(ctx, account, password)
	if err != nil {
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Failure, false, account.ID, phone, "", mapped, meta)
		return TokenPair{}, mapped
	}
	if !ok {
		if err := deps.RecordLoginAttempt(ctx, account.ID, ip, device, false); err != nil {
			mapped := deps.MapBackendError(err)
			deps.EmitAudit(ctx, deps.Events.Failure, false, account.ID, phone, "", mapped, meta)
			return TokenPair{}, mapped
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, account.ID, phone, "", deps.Errors.InvalidCredentials, meta)
		return TokenPair{}, deps.Errors.InvalidCredentials
	}

	if err := deps.RecordLoginAttempt(ctx, account.ID, ip, device, true); err != nil {
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Failure, false, account.ID, phone, "", mapped, meta)
		return TokenPair{}, mapped
	}

	pair, err := deps.IssueTokens(account.ID, account.Phone, account.Role)
	if err != nil {
		mapped := deps.MapBackendError(err)
		deps.EmitAudit(ctx, deps.Events.Failure, false, account.ID, phone, "", mapped, meta)
		return TokenPair{}, mapped
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, account.ID, phone, "", nil, meta)
	return pair, nil
}
