package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIssueThrottle(t *testing.T, cfg IssueThrottleConfig) (*miniredis.Miniredis, *IssueThrottle) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewIssueThrottle(client, cfg)
}

func TestIssueThrottleBlocksAfterBudget(t *testing.T) {
	mr, l := newIssueThrottle(t, IssueThrottleConfig{MaxRequests: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, "registration", "+15550001111", ""); err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
	}
	if err := l.Check(ctx, "registration", "+15550001111", ""); !errors.Is(err, ErrIssueThrottled) {
		t.Fatalf("expected ErrIssueThrottled, got %v", err)
	}

	if err := l.Check(ctx, "password_reset", "+15550001111", ""); err != nil {
		t.Fatalf("expected purposes to have separate budgets, got %v", err)
	}

	retry, err := l.RetryAfter(ctx, "registration", "+15550001111", "")
	if err != nil {
		t.Fatalf("RetryAfter failed: %v", err)
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry-after %v", retry)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Check(ctx, "registration", "+15550001111", ""); err != nil {
		t.Fatalf("expected window reset, got %v", err)
	}
}

func TestIssueThrottlePerIP(t *testing.T) {
	_, l := newIssueThrottle(t, IssueThrottleConfig{MaxRequests: 2, Window: time.Minute, PerIP: true})
	ctx := context.Background()

	if err := l.Check(ctx, "registration", "+15550000001", "10.0.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Check(ctx, "registration", "+15550000002", "10.0.0.1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Check(ctx, "registration", "+15550000003", "10.0.0.1"); !errors.Is(err, ErrIssueThrottled) {
		t.Fatalf("expected IP budget to be enforced, got %v", err)
	}
}

func TestIssueThrottleRetryAfterFollowsBlockingWindow(t *testing.T) {
	mr, l := newIssueThrottle(t, IssueThrottleConfig{MaxRequests: 2, Window: time.Minute, PerIP: true})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Check(ctx, "registration", "+15550000001", "10.0.0.1"); err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
	}
	mr.FastForward(30 * time.Second)
	if err := l.Check(ctx, "registration", "+15550000002", "10.0.0.1"); !errors.Is(err, ErrIssueThrottled) {
		t.Fatalf("expected IP budget to be enforced, got %v", err)
	}

	// The second phone's own window is fresh but still has budget.
	retry, err := l.RetryAfter(ctx, "registration", "+15550000002", "10.0.0.1")
	if err != nil {
		t.Fatalf("RetryAfter failed: %v", err)
	}
	if retry <= 0 || retry > 30*time.Second {
		t.Fatalf("expected the remaining IP window, got %v", retry)
	}

	retry, err = l.RetryAfter(ctx, "registration", "+15550000003", "")
	if err != nil || retry != 0 {
		t.Fatalf("expected no wait for an unseen subject, got %v err=%v", retry, err)
	}

	var nilThrottle *IssueThrottle
	if retry, err := nilThrottle.RetryAfter(ctx, "registration", "+15550000002", ""); err != nil || retry != 0 {
		t.Fatalf("expected nil limiter to report no wait, got %v err=%v", retry, err)
	}
}

func TestIssueThrottleNilSafe(t *testing.T) {
	var l *IssueThrottle
	if err := l.Check(context.Background(), "registration", "+15550000001", ""); err != nil {
		t.Fatalf("expected nil limiter to allow, got %v", err)
	}
}

func TestIssueThrottleUnavailable(t *testing.T) {
	mr, l := newIssueThrottle(t, IssueThrottleConfig{MaxRequests: 2, Window: time.Minute})
	mr.Close()

	err := l.Check(context.Background(), "registration", "+15550000001", "")
	if !errors.Is(err, ErrIssueThrottleUnavailable) {
		t.Fatalf("expected ErrIssueThrottleUnavailable, got %v", err)
	}
}
