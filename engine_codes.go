package goPhoneAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/codes"
	"github.com/MrEthical07/goPhoneAuth/internal/flows"
	"github.com/MrEthical07/goPhoneAuth/internal/limiters"
	"github.com/MrEthical07/goPhoneAuth/internal/logx"
)

var errSMSRejected = errors.New("sms provider rejected message")

func (e *Engine) codeDeps() flows.CodeDeps {
	return flows.CodeDeps{
		IssueCode:          e.issueCode,
		VerifyCode:         e.verifyCode,
		FindLatestUsedCode: e.codeStore.FindLatestUsed,
		DeleteCodes:        e.codeStore.DeleteActive,
	}
}

func (e *Engine) sendCode(ctx context.Context, phone, code string, purpose codes.Purpose) error {
	ok, err := e.sms.SendCode(ctx, phone, code, string(purpose))
	if err != nil {
		return err
	}
	if !ok {
		return errSMSRejected
	}
	return nil
}

func (e *Engine) issueCode(ctx context.Context, phone string, purpose codes.Purpose) error {
	_, err := e.issuer.Issue(ctx, phone, purpose)
	switch {
	case err == nil:
		e.metricInc(int(MetricCodeIssued))
		return nil
	case errors.Is(err, codes.ErrDeliveryFailed):
		e.metricInc(int(MetricCodeDeliveryFailed))
		logx.FromContext(ctx, e.logger).WarnContext(ctx, "code delivery failed",
			logx.Phone(phone),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err),
		)
		return ErrDeliveryFailed
	default:
		return e.mapBackendError(err)
	}
}

// verifyCode returns an onMatch failure unmapped; the caller owns it.
func (e *Engine) verifyCode(ctx context.Context, phone string, purpose codes.Purpose, code string, onMatch func(context.Context) error) error {
	if err := e.input.code(code); err != nil {
		return err
	}

	var (
		apply    codes.ApplyFunc
		applyErr error
	)
	if onMatch != nil {
		apply = func(ctx context.Context, _ *codes.Record) error {
			applyErr = onMatch(ctx)
			return applyErr
		}
	}

	start := time.Now()
	_, err := e.verifier.VerifyAndApply(ctx, phone, purpose, code, apply)
	e.metricObserve(int(MetricVerifyLatency), time.Since(start))

	var invalid *codes.InvalidCodeError
	switch {
	case err == nil:
		e.metricInc(int(MetricCodeVerifySuccess))
		return nil
	case applyErr != nil:
		return applyErr
	case errors.As(err, &invalid):
		e.metricInc(int(MetricCodeVerifyInvalid))
		return err
	case errors.Is(err, codes.ErrNoActiveCode):
		e.metricInc(int(MetricCodeNoActive))
		return ErrNoActiveCode
	case errors.Is(err, codes.ErrExpired):
		e.metricInc(int(MetricCodeExpired))
		return ErrCodeExpired
	case errors.Is(err, codes.ErrAttemptsExhausted):
		e.metricInc(int(MetricCodeAttemptsExhausted))
		return ErrAttemptsExhausted
	default:
		return e.mapBackendError(err)
	}
}

func (e *Engine) checkIssueThrottle(ctx context.Context, purpose codes.Purpose, phone, ip string) error {
	if e.throttle == nil {
		return nil
	}

	err := e.throttle.Check(ctx, string(purpose), phone, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiters.ErrIssueThrottled):
		e.metricInc(int(MetricCodeIssueRateLimited))
		limited := &RateLimitedError{}
		wait, err := e.throttle.RetryAfter(ctx, string(purpose), phone, ip)
		if err != nil {
			logx.FromContext(ctx, e.logger).WarnContext(ctx, "retry-after lookup failed",
				logx.Phone(phone),
				slog.Any("error", err),
			)
		} else {
			limited.RetryAfter = wait
		}
		e.emitAudit(ctx, auditEventCodeIssueRateLimited, false, "", phone, string(purpose), limited, func() map[string]string {
			return map[string]string{"retry_after_ms": strconv.FormatInt(limited.RetryAfter.Milliseconds(), 10)}
		})
		return limited
	default:
		return e.mapBackendError(err)
	}
}

// mapBackendError folds every non-domain failure into ErrUnavailable and
// logs the cause. It is idempotent.
func (e *Engine) mapBackendError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	e.metricInc(int(MetricBackendUnavailable))
	e.logger.Error("backend failure", slog.Any("error", err))
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func isAccountConflict(err error) bool {
	return errors.Is(err, ErrAccountAlreadyExists)
}
