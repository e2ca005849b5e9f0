package goPhoneAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/audit"
	"github.com/MrEthical07/goPhoneAuth/internal/codes"
	"github.com/MrEthical07/goPhoneAuth/internal/metrics"
	"github.com/MrEthical07/goPhoneAuth/jwt"
)

// Account is the Account Directory's view of a user. The engine never
// stores it.
type Account struct {
	ID            string
	Phone         string
	FullName      string
	Email         string
	Role          string
	PhoneVerified bool
}

// TokenPair is returned by successful registration, login and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	Role             string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AccountDirectory owns account records, password hashing and lockout
// policy. Implementations return ErrAccountAlreadyExists and
// ErrAccountNotFound (possibly wrapped) for those conditions; any other
// error is treated as a backend fault.
//
//	Docs: directory/memdir for an in-memory implementation.
type AccountDirectory interface {
	// CreateUnverifiedAccount returns the new account id. Re-registering a
	// phone whose registration was never completed should return the
	// existing id instead of a conflict.
	CreateUnverifiedAccount(ctx context.Context, phone, fullName string) (string, error)
	MarkPhoneVerifiedAndCreateProfile(ctx context.Context, phone string) error
	SetPassword(ctx context.Context, phone, password, email string) (Account, error)
	FindAccountByPhone(ctx context.Context, phone string) (Account, error)
	UpdatePassword(ctx context.Context, phone, newPassword string) error
	ValidatePassword(ctx context.Context, account Account, password string) (bool, error)
	// IsLocked is authoritative and consulted on every login attempt.
	IsLocked(ctx context.Context, accountID string) (bool, error)
	RecordLoginAttempt(ctx context.Context, accountID, ip, device string, success bool) error
}

// SMSSender delivers a plaintext code. (false, nil) and (_, err) both mean
// the code was not delivered.
type SMSSender interface {
	SendCode(ctx context.Context, phone, code, purpose string) (bool, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CodeHasher is the one-way function applied to codes before storage.
// Compare must be constant-time with respect to the digest.
type CodeHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, digest string) (bool, error)
}

// CodeGenerator produces a numeric code of the given length.
type CodeGenerator func(length int) (string, error)

// Purpose scopes a one-time code.
type Purpose = codes.Purpose

const (
	PurposeRegistration  = codes.PurposeRegistration
	PurposePasswordReset = codes.PurposePasswordReset
)

// Claims are the parsed claims of an access or refresh token.
type Claims = jwt.Claims

// AuditEvent is the structured event handed to an AuditSink.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	SlogSink       = audit.SlogSink
)

var (
	NewChannelSink    = audit.NewChannelSink
	NewJSONWriterSink = audit.NewJSONWriterSink
	NewSlogSink       = audit.NewSlogSink
)

// MetricID and MetricsSnapshot are re-exported for exporters.
type (
	MetricID        = metrics.MetricID
	MetricsSnapshot = metrics.Snapshot
)
