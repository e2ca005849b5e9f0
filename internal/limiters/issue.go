package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrIssueThrottled           = errors.New("code issue rate limited")
	ErrIssueThrottleUnavailable = errors.New("code issue throttle unavailable")
)

// IssueThrottleConfig bounds how many codes may be requested per window.
type IssueThrottleConfig struct {
	Prefix      string
	MaxRequests int
	Window      time.Duration
	PerIP       bool
}

// IssueThrottle is a fixed-window counter keyed by (purpose, subject) and,
// optionally, by client IP.
type IssueThrottle struct {
	redis  redis.UniversalClient
	config IssueThrottleConfig
}

func NewIssueThrottle(redisClient redis.UniversalClient, cfg IssueThrottleConfig) *IssueThrottle {
	if cfg.Prefix == "" {
		cfg.Prefix = "otpi"
	}
	return &IssueThrottle{
		redis:  redisClient,
		config: cfg,
	}
}

// Check counts one request. It returns ErrIssueThrottled once the window
// budget is spent.
func (l *IssueThrottle) Check(ctx context.Context, purpose, subject, ip string) error {
	if l == nil {
		return nil
	}
	if err := l.enforceFixedWindow(ctx, l.subjectKey(purpose, subject)); err != nil {
		return err
	}
	if l.config.PerIP && ip != "" {
		if err := l.enforceFixedWindow(ctx, l.ipKey(purpose, ip)); err != nil {
			return err
		}
	}
	return nil
}

// RetryAfter reports how long until every window that would reject the
// next request has reset. Windows with budget left do not count.
func (l *IssueThrottle) RetryAfter(ctx context.Context, purpose, subject, ip string) (time.Duration, error) {
	if l == nil {
		return 0, nil
	}

	keys := []string{l.subjectKey(purpose, subject)}
	if l.config.PerIP && ip != "" {
		keys = append(keys, l.ipKey(purpose, ip))
	}

	counts := make([]*redis.StringCmd, len(keys))
	ttls := make([]*redis.DurationCmd, len(keys))
	_, err := l.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			counts[i] = pipe.Get(ctx, key)
			ttls[i] = pipe.PTTL(ctx, key)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrIssueThrottleUnavailable, err)
	}

	var wait time.Duration
	for i := range keys {
		count, err := counts[i].Int64()
		if err != nil || count < int64(l.config.MaxRequests) {
			continue
		}
		if ttl := ttls[i].Val(); ttl > wait {
			wait = ttl
		}
	}
	return wait, nil
}

func (l *IssueThrottle) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIssueThrottleUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrIssueThrottleUnavailable, err)
		}
	}

	if count > int64(l.config.MaxRequests) {
		return ErrIssueThrottled
	}

	return nil
}

func (l *IssueThrottle) subjectKey(purpose, subject string) string {
	return l.config.Prefix + ":" + purpose + ":" + subject
}

func (l *IssueThrottle) ipKey(purpose, ip string) string {
	return l.config.Prefix + "ip:" + purpose + ":" + ip
}
