package codes

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoActiveCode      = errors.New("no active code")
	ErrExpired           = errors.New("code expired")
	ErrAttemptsExhausted = errors.New("code attempts exhausted")
	ErrInvalidCode       = errors.New("invalid code")
)

// InvalidCodeError is returned for a wrong submission while attempts remain.
// It matches ErrInvalidCode with errors.Is.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code: %d attempts remaining", e.Remaining)
}

func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}

// VerifierDeps wires a Verifier.
type VerifierDeps struct {
	Store  Store
	Hasher Hasher
	Policy Policy
	Now    func() time.Time
}

// Verifier checks submitted codes against the latest unused record.
type Verifier struct {
	deps VerifierDeps
}

func NewVerifier(deps VerifierDeps) *Verifier {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Verifier{deps: deps}
}

// ApplyFunc runs after a submission matches and before the record is
// consumed. A non-nil error leaves the code usable for a retry.
type ApplyFunc func(ctx context.Context, record *Record) error

// Verify runs the checks in a fixed order: lookup, expiry, attempt budget,
// comparison. Expired and exhausted records are rejected without touching
// the attempt counter. On success the record is marked used and returned.
func (v *Verifier) Verify(ctx context.Context, subject string, purpose Purpose, submitted string) (*Record, error) {
	return v.VerifyAndApply(ctx, subject, purpose, submitted, nil)
}

// VerifyAndApply is Verify with a side effect that must succeed before the
// code is spent. apply may run more than once for the same code when an
// earlier call failed, so it has to be idempotent.
func (v *Verifier) VerifyAndApply(ctx context.Context, subject string, purpose Purpose, submitted string, apply ApplyFunc) (*Record, error) {
	record, err := v.deps.Store.FindLatestUnused(ctx, subject, purpose)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNoActiveCode
		}
		return nil, err
	}

	now := v.deps.Now()
	if record.Expired(now) {
		return nil, ErrExpired
	}
	if record.Attempts >= v.deps.Policy.MaxAttempts {
		return nil, ErrAttemptsExhausted
	}

	// The snapshot above is stale under concurrency; the reservation is the
	// authoritative budget check.
	if err := v.deps.Store.ReserveAttempt(ctx, record, v.deps.Policy.MaxAttempts); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNoActiveCode
		}
		return nil, err
	}

	ok, err := v.deps.Hasher.Compare(submitted, record.CodeHash)
	if err != nil {
		v.release(ctx, record)
		return nil, fmt.Errorf("%w: %v", ErrHashFailed, err)
	}

	if !ok {
		stale, err := v.matchesSuperseded(submitted, record)
		if err != nil {
			v.release(ctx, record)
			return nil, fmt.Errorf("%w: %v", ErrHashFailed, err)
		}
		if stale {
			v.release(ctx, record)
			return nil, ErrNoActiveCode
		}

		updated, err := v.deps.Store.IncrementAttempts(ctx, record, now)
		if err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return nil, ErrNoActiveCode
			}
			return nil, err
		}
		remaining := v.deps.Policy.MaxAttempts - updated.Attempts
		if remaining < 0 {
			remaining = 0
		}
		return nil, &InvalidCodeError{Remaining: remaining}
	}

	if apply != nil {
		if err := apply(ctx, record); err != nil {
			v.release(ctx, record)
			return nil, err
		}
	}

	used, err := v.deps.Store.MarkUsed(ctx, record, now)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNoActiveCode
		}
		return nil, err
	}

	return used, nil
}

// matchesSuperseded reports whether submitted is a code this record replaced.
func (v *Verifier) matchesSuperseded(submitted string, record *Record) (bool, error) {
	for _, digest := range record.Superseded {
		ok, err := v.deps.Hasher.Compare(submitted, digest)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// release hands back a reservation. It ignores cancellation so an abandoned
// request does not hold a slot; a lost release only shrinks the budget.
func (v *Verifier) release(ctx context.Context, record *Record) {
	_ = v.deps.Store.ReleaseAttempt(context.WithoutCancel(ctx), record)
}
