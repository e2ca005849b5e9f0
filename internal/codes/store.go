package codes

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// Purpose separates codes issued by different flows for the same subject.
type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposePasswordReset Purpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeRegistration || p == PurposePasswordReset
}

var (
	// ErrRecordNotFound is returned by Store lookups and by conditional
	// mutations whose target is gone or already used.
	ErrRecordNotFound = errors.New("code record not found")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("code store unavailable")
)

// MaxSuperseded bounds how many replaced code hashes a record remembers.
const MaxSuperseded = 2

// Record is a persisted one-time code. CodeHash is the only representation of
// the code that is ever stored.
type Record struct {
	ID        string
	Subject   string
	Purpose   Purpose
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	IsUsed    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	// Superseded holds the hashes of the codes this record replaced, newest
	// first, so a stale code can be told apart from a wrong guess.
	Superseded []string
}

// Expired reports whether the record is past its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store persists code records keyed by (subject, purpose).
//
// Every mutation is an atomic single-record update that only applies while
// the record is unused; it returns ErrRecordNotFound otherwise.
//
// A comparison must hold a reservation. ReserveAttempt takes one only while
// attempts plus outstanding reservations stay below maxAttempts, and returns
// ErrAttemptsExhausted otherwise. IncrementAttempts and MarkUsed settle the
// caller's reservation; ReleaseAttempt returns it without counting. attempts
// itself only grows on a failed comparison.
type Store interface {
	DeleteActive(ctx context.Context, subject string, purpose Purpose) error
	Create(ctx context.Context, record *Record) error
	FindLatestUnused(ctx context.Context, subject string, purpose Purpose) (*Record, error)
	FindLatestUsed(ctx context.Context, subject string, purpose Purpose) (*Record, error)
	ReserveAttempt(ctx context.Context, record *Record, maxAttempts int) error
	ReleaseAttempt(ctx context.Context, record *Record) error
	IncrementAttempts(ctx context.Context, record *Record, now time.Time) (*Record, error)
	MarkUsed(ctx context.Context, record *Record, now time.Time) (*Record, error)
}

// NewRecordID returns a ULID whose lexical order follows creation time.
func NewRecordID(now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
