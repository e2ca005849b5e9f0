package goPhoneAuth

import (
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goPhoneAuth/internal/logx"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := testConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultConfigRequiresSigningKey(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing key to fail")
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short code", func(c *Config) { c.OTP.CodeLength = 3 }, "CodeLength"},
		{"long code", func(c *Config) { c.OTP.CodeLength = 11 }, "CodeLength"},
		{"zero expiry", func(c *Config) { c.OTP.Expiry = 0 }, "Expiry"},
		{"zero attempts", func(c *Config) { c.OTP.MaxAttempts = 0 }, "MaxAttempts"},
		{"zero grace", func(c *Config) { c.OTP.GraceWindow = 0 }, "GraceWindow"},
		{"retention too short", func(c *Config) { c.OTP.RecordRetention = 10 * time.Minute }, "RecordRetention"},
		{"refresh shorter than access", func(c *Config) { c.JWT.RefreshTTL = time.Hour }, "RefreshTTL"},
		{"leeway", func(c *Config) { c.JWT.Leeway = time.Hour }, "Leeway"},
		{"method", func(c *Config) { c.JWT.SigningMethod = "rs256" }, "signing method"},
		{"hs256 short key", func(c *Config) {
			c.JWT.SigningMethod = "hs256"
			c.JWT.PrivateKey = []byte("short")
		}, "hs256"},
		{"throttle window", func(c *Config) {
			c.IssueThrottle.Enabled = true
			c.IssueThrottle.Window = 0
		}, "Window"},
		{"password bounds", func(c *Config) { c.Input.PasswordMaxLength = 4 }, "PasswordMaxLength"},
		{"audit buffer", func(c *Config) { c.Audit.BufferSize = 0 }, "BufferSize"},
		{"production throttle", func(c *Config) { c.Security.ProductionMode = true }, "IssueThrottle"},
		{"production attempts", func(c *Config) {
			c.Security.ProductionMode = true
			c.IssueThrottle.Enabled = true
			c.OTP.MaxAttempts = 10
		}, "MaxAttempts"},
	}

	for _, tc := range cases {
		cfg := testConfig(t)
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRetentionCanBeDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.OTP.RecordRetention = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero retention should validate: %v", err)
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := testConfig(t)
	clone := cloneConfig(cfg)
	clone.JWT.PrivateKey[0] ^= 0xff
	if cfg.JWT.PrivateKey[0] == clone.JWT.PrivateKey[0] {
		t.Fatalf("clone shares key bytes")
	}
}

func TestBuilderRequirements(t *testing.T) {
	_, rdb := newTestRedis(t)
	dir := newFakeDirectory()
	sms := &recordingSMS{}

	cases := []struct {
		name  string
		build func() *Builder
		want  string
	}{
		{"no store", func() *Builder {
			return New().WithConfig(testConfig(t)).WithAccountDirectory(dir).WithSMSSender(sms)
		}, "redis client or mongo"},
		{"no directory", func() *Builder {
			return New().WithConfig(testConfig(t)).WithRedis(rdb).WithSMSSender(sms)
		}, "account directory"},
		{"no sms", func() *Builder {
			return New().WithConfig(testConfig(t)).WithRedis(rdb).WithAccountDirectory(dir)
		}, "sms sender"},
		{"invalid config", func() *Builder {
			return New().WithRedis(rdb).WithAccountDirectory(dir).WithSMSSender(sms)
		}, "PrivateKey"},
	}

	for _, tc := range cases {
		_, err := tc.build().WithLogger(logx.Discard()).Build()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	b := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithAccountDirectory(newFakeDirectory()).
		WithSMSSender(&recordingSMS{}).
		WithLogger(logx.Discard())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatalf("second Build should fail")
	}
}
