package goPhoneAuth

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestAuditEventsMaskPhoneAndCarryClient(t *testing.T) {
	env := newTestEnv(t, withGenerator("482913"))
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	if err := env.engine.BeginRegistration(ctx, testPhone, "Lina Haddad"); err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	_ = env.engine.VerifyRegistrationCode(ctx, testPhone, "000000")

	events := env.auditEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	begin := events[0]
	if begin.EventType != auditEventRegistrationBegin || !begin.Success {
		t.Fatalf("unexpected first event: %+v", begin)
	}
	if begin.Subject != "+963*******67" || begin.IP != "203.0.113.7" || begin.Purpose != "registration" {
		t.Fatalf("unexpected subject fields: %+v", begin)
	}

	verify := events[1]
	if verify.EventType != auditEventRegistrationVerify || verify.Success || verify.Error != string(auditErrInvalidCode) {
		t.Fatalf("unexpected second event: %+v", verify)
	}
}

func TestAuditLogNeverContainsCodeOrPhone(t *testing.T) {
	_, rdb := newTestRedis(t)
	var buf bytes.Buffer
	sms := &recordingSMS{}

	cfg := testConfig(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountDirectory(newFakeDirectory()).
		WithSMSSender(sms).
		WithCodeGenerator(sequenceGenerator("482913")).
		WithAuditSink(NewJSONWriterSink(&buf)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ctx := context.Background()
	if err := engine.BeginRegistration(ctx, testPhone, "Lina Haddad"); err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	if err := engine.VerifyRegistrationCode(ctx, testPhone, "482913"); err != nil {
		t.Fatalf("VerifyRegistrationCode failed: %v", err)
	}
	engine.Close()

	out := buf.String()
	if strings.Contains(out, "482913") || strings.Contains(out, testPhone) {
		t.Fatalf("audit output leaks sensitive data: %s", out)
	}
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected 2 JSON lines, got %q", out)
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	cases := map[error]AuditErrorCode{
		ErrInvalidCredentials:     auditErrInvalidCredentials,
		ErrAccountLocked:          auditErrAccountLocked,
		&InvalidCodeError{}:       auditErrInvalidCode,
		ErrCodeRequestRateLimited: auditErrRateLimited,
		ErrUnavailable:            auditErrUnavailable,
	}
	for err, want := range cases {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
	if auditErrorCode(nil) != "" {
		t.Fatalf("nil error must map to empty code")
	}
}
