// Package sms holds SMS delivery adapters for one-time codes: a development
// sender that logs instead of sending, and a rate-limited wrapper around
// any real gateway.
package sms

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/goPhoneAuth/internal/logx"
	"golang.org/x/time/rate"
)

// Sender is the delivery capability. accepted=false with a nil error means
// the gateway refused the message.
type Sender interface {
	SendCode(ctx context.Context, phone, code, purpose string) (bool, error)
}

// SenderFunc adapts a plain function to Sender.
type SenderFunc func(ctx context.Context, phone, code, purpose string) (bool, error)

func (f SenderFunc) SendCode(ctx context.Context, phone, code, purpose string) (bool, error) {
	return f(ctx, phone, code, purpose)
}

// LogSender writes codes to a logger instead of a gateway. With
// ProductionMode set the code itself is never logged.
type LogSender struct {
	logger         *slog.Logger
	productionMode bool
}

func NewLogSender(logger *slog.Logger, productionMode bool) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{
		logger:         logger.With("component", "sms"),
		productionMode: productionMode,
	}
}

func (s *LogSender) SendCode(ctx context.Context, phone, code, purpose string) (bool, error) {
	attrs := []slog.Attr{
		slog.String("purpose", purpose),
	}
	if s.productionMode {
		attrs = append(attrs, logx.Phone(phone))
	} else {
		attrs = append(attrs, slog.String("phone", phone), slog.String("code", code))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "sms code dispatched", attrs...)
	return true, nil
}

// Throttled limits the dispatch rate to a gateway with a token bucket.
// Callers block until a token is available or ctx ends.
type Throttled struct {
	next    Sender
	limiter *rate.Limiter
}

// NewThrottled allows perSecond messages per second with the given burst.
func NewThrottled(next Sender, perSecond float64, burst int) *Throttled {
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *Throttled) SendCode(ctx context.Context, phone, code, purpose string) (bool, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("sms throttle: %w", err)
	}
	return t.next.SendCode(ctx, phone, code, purpose)
}
