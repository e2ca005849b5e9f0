package goPhoneAuth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/codes"
)

// Config is the complete engine configuration. Start from [DefaultConfig]
// and override fields; [Builder.Build] calls [Config.Validate].
type Config struct {
	OTP           OTPConfig
	PasswordReset PasswordResetConfig
	JWT           JWTConfig
	IssueThrottle IssueThrottleConfig
	Store         StoreConfig
	Input         InputConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Security      SecurityConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig holds the one-time-code policy shared by registration and
// password reset.
type OTPConfig struct {
	CodeLength  int
	Expiry      time.Duration
	MaxAttempts int
	// GraceWindow bounds how long after a successful verification the
	// finalize step (set or reset password) is still accepted.
	GraceWindow time.Duration
	// RecordRetention is a backend TTL on stored records so abandoned flows
	// do not accumulate. Zero disables it.
	RecordRetention time.Duration
}

// PasswordResetConfig tunes the reset flow.
type PasswordResetConfig struct {
	// RevealDeliveryFailure returns ErrDeliveryFailed from
	// RequestPasswordReset instead of the generic success result.
	RevealDeliveryFailure bool
}

/*
====================================
JWT CONFIG
====================================
*/

type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
THROTTLE / STORE CONFIG
====================================
*/

// IssueThrottleConfig limits how often codes may be requested per phone
// and purpose. It needs Redis.
type IssueThrottleConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	PerIP       bool
	RedisPrefix string
}

type StoreConfig struct {
	RedisPrefix     string
	MongoCollection string
}

// InputConfig bounds caller-supplied fields before any backend is touched.
type InputConfig struct {
	FullNameMaxLength int
	PasswordMinLength int
	PasswordMaxLength int
}

/*
====================================
AUDIT / METRICS / SECURITY
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

type SecurityConfig struct {
	// ProductionMode tightens validation and keeps plaintext codes out of
	// every log line.
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT keys are not set.
func DefaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			CodeLength:      6,
			Expiry:          5 * time.Minute,
			MaxAttempts:     3,
			GraceWindow:     10 * time.Minute,
			RecordRetention: 24 * time.Hour,
		},
		JWT: JWTConfig{
			AccessTTL:     7 * 24 * time.Hour,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		IssueThrottle: IssueThrottleConfig{
			Enabled:     false,
			MaxRequests: 5,
			Window:      15 * time.Minute,
			RedisPrefix: "otpi",
		},
		Store: StoreConfig{
			RedisPrefix:     "otp",
			MongoCollection: "one_time_codes",
		},
		Input: InputConfig{
			FullNameMaxLength: 100,
			PasswordMinLength: 8,
			PasswordMaxLength: 72,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// OTP
	if c.OTP.CodeLength < codes.MinCodeLength || c.OTP.CodeLength > codes.MaxCodeLength {
		return fmt.Errorf("OTP CodeLength must be in [%d, %d]", codes.MinCodeLength, codes.MaxCodeLength)
	}
	if c.OTP.Expiry <= 0 {
		return errors.New("OTP Expiry must be > 0")
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP MaxAttempts must be >= 1")
	}
	if c.OTP.GraceWindow <= 0 {
		return errors.New("OTP GraceWindow must be > 0")
	}
	if c.OTP.RecordRetention < 0 {
		return errors.New("OTP RecordRetention must be >= 0")
	}
	if c.OTP.RecordRetention > 0 && c.OTP.RecordRetention <= c.OTP.Expiry+c.OTP.GraceWindow {
		return errors.New("OTP RecordRetention must exceed Expiry + GraceWindow")
	}

	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be in [0, 2m]")
	}
	switch c.JWT.SigningMethod {
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires PrivateKey of at least 32 bytes")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Throttle
	if c.IssueThrottle.Enabled {
		if c.IssueThrottle.MaxRequests < 1 {
			return errors.New("IssueThrottle MaxRequests must be >= 1")
		}
		if c.IssueThrottle.Window <= 0 {
			return errors.New("IssueThrottle Window must be > 0")
		}
	}

	// Input
	if c.Input.PasswordMinLength < 1 {
		return errors.New("Input PasswordMinLength must be >= 1")
	}
	if c.Input.PasswordMaxLength < c.Input.PasswordMinLength {
		return errors.New("Input PasswordMaxLength must be >= PasswordMinLength")
	}
	if c.Input.FullNameMaxLength < 1 {
		return errors.New("Input FullNameMaxLength must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Enabled")
	}

	// Production
	if c.Security.ProductionMode {
		if c.OTP.CodeLength < 6 {
			return errors.New("ProductionMode requires OTP CodeLength >= 6")
		}
		if c.OTP.MaxAttempts > 5 {
			return errors.New("ProductionMode requires OTP MaxAttempts <= 5")
		}
		if c.OTP.Expiry > 15*time.Minute {
			return errors.New("ProductionMode requires OTP Expiry <= 15m")
		}
		if c.JWT.RefreshTTL > 90*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 90d")
		}
		if !c.IssueThrottle.Enabled {
			return errors.New("ProductionMode requires IssueThrottle")
		}
	}

	return nil
}
