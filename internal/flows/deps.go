package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/codes"
)

// Account is the flow-local view of an Account Directory record.
type Account struct {
	ID            string
	Phone         string
	FullName      string
	Email         string
	Role          string
	PhoneVerified bool
}

// TokenPair is the flow-local token response shape.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	Role             string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuditFunc emits one audit event. meta is only evaluated when auditing is on.
type AuditFunc func(ctx context.Context, event string, success bool, accountID, phone, purpose string, err error, meta func() map[string]string)

// CodeDeps is the one-time-code surface shared by the registration and
// password reset flows. IssueCode and VerifyCode return host-level errors.
//
// VerifyCode runs onMatch, when set, after the code matches and before it is
// consumed. An onMatch error is returned unchanged and the code stays usable.
type CodeDeps struct {
	IssueCode          func(ctx context.Context, phone string, purpose codes.Purpose) error
	VerifyCode         func(ctx context.Context, phone string, purpose codes.Purpose, code string, onMatch func(context.Context) error) error
	FindLatestUsedCode func(ctx context.Context, phone string, purpose codes.Purpose) (*codes.Record, error)
	DeleteCodes        func(ctx context.Context, phone string, purpose codes.Purpose) error
}

func (d CodeDeps) ready() bool {
	return d.IssueCode != nil && d.VerifyCode != nil && d.FindLatestUsedCode != nil && d.DeleteCodes != nil
}

func noopAudit(context.Context, string, bool, string, string, string, error, func() map[string]string) {}

func noopMetric(int) {}

func noopThrottle(context.Context, codes.Purpose, string, string) error { return nil }

func emptyContextValue(context.Context) string { return "" }

// requireRecentVerification checks that the latest used record for
// (phone, purpose) was verified no longer than grace ago.
func requireRecentVerification(
	ctx context.Context,
	phone string,
	purpose codes.Purpose,
	find func(context.Context, string, codes.Purpose) (*codes.Record, error),
	now time.Time,
	grace time.Duration,
	expired error,
	mapBackend func(error) error,
) error {
	record, err := find(ctx, phone, purpose)
	if err != nil {
		if errors.Is(err, codes.ErrRecordNotFound) {
			return expired
		}
		return mapBackend(err)
	}
	if now.Sub(record.UpdatedAt) > grace {
		return expired
	}
	return nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
