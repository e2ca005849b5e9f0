package goPhoneAuth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goPhoneAuth/hashing"
	"github.com/MrEthical07/goPhoneAuth/internal/logx"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPhone    = "+963991234567"
	testPassword = "correct-horse-1"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type sentCode struct {
	phone   string
	code    string
	purpose string
}

type recordingSMS struct {
	mu     sync.Mutex
	sent   []sentCode
	reject bool
	err    error
}

func (s *recordingSMS) SendCode(_ context.Context, phone, code, purpose string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return false, s.err
	}
	if s.reject {
		return false, nil
	}
	s.sent = append(s.sent, sentCode{phone: phone, code: code, purpose: purpose})
	return true, nil
}

func (s *recordingSMS) setFailure(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *recordingSMS) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSMS) last(t *testing.T) sentCode {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatalf("no code was sent")
	}
	return s.sent[len(s.sent)-1]
}

type loginAttempt struct {
	accountID string
	ip        string
	device    string
	success   bool
}

type fakeAccount struct {
	account  Account
	password string
}

// fakeDirectory is a minimal AccountDirectory with plaintext passwords and
// an externally controlled lock flag.
type fakeDirectory struct {
	mu            sync.Mutex
	byPhone       map[string]*fakeAccount
	locked        map[string]bool
	attempts      []loginAttempt
	validateCalls int
	nextID        int
	failWith      error
	failAttempts  error
	failMarkOnce  error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byPhone: map[string]*fakeAccount{},
		locked:  map[string]bool{},
	}
}

// seed adds a fully registered account.
func (d *fakeDirectory) seed(phone, password, role string) Account {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	a := &fakeAccount{
		account: Account{
			ID:            fmt.Sprintf("acc-%d", d.nextID),
			Phone:         phone,
			FullName:      "Seeded",
			Role:          role,
			PhoneVerified: true,
		},
		password: password,
	}
	d.byPhone[phone] = a
	return a.account
}

func (d *fakeDirectory) get(phone string) (fakeAccount, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.byPhone[phone]
	if !ok {
		return fakeAccount{}, false
	}
	return *a, true
}

func (d *fakeDirectory) setLocked(accountID string, locked bool) {
	d.mu.Lock()
	d.locked[accountID] = locked
	d.mu.Unlock()
}

func (d *fakeDirectory) setRole(phone, role string) {
	d.mu.Lock()
	d.byPhone[phone].account.Role = role
	d.mu.Unlock()
}

func (d *fakeDirectory) remove(phone string) {
	d.mu.Lock()
	delete(d.byPhone, phone)
	d.mu.Unlock()
}

func (d *fakeDirectory) CreateUnverifiedAccount(_ context.Context, phone, fullName string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failWith != nil {
		return "", d.failWith
	}
	if existing, ok := d.byPhone[phone]; ok {
		if existing.password != "" {
			return "", ErrAccountAlreadyExists
		}
		return existing.account.ID, nil
	}
	d.nextID++
	a := &fakeAccount{account: Account{
		ID:       fmt.Sprintf("acc-%d", d.nextID),
		Phone:    phone,
		FullName: fullName,
		Role:     "customer",
	}}
	d.byPhone[phone] = a
	return a.account.ID, nil
}

func (d *fakeDirectory) MarkPhoneVerifiedAndCreateProfile(_ context.Context, phone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failWith != nil {
		return d.failWith
	}
	if err := d.failMarkOnce; err != nil {
		d.failMarkOnce = nil
		return err
	}
	a, ok := d.byPhone[phone]
	if !ok {
		return ErrAccountNotFound
	}
	a.account.PhoneVerified = true
	return nil
}

func (d *fakeDirectory) SetPassword(_ context.Context, phone, password, email string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failWith != nil {
		return Account{}, d.failWith
	}
	a, ok := d.byPhone[phone]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	a.password = password
	a.account.Email = email
	return a.account, nil
}

func (d *fakeDirectory) FindAccountByPhone(_ context.Context, phone string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failWith != nil {
		return Account{}, d.failWith
	}
	a, ok := d.byPhone[phone]
	if !ok || a.password == "" {
		return Account{}, ErrAccountNotFound
	}
	return a.account, nil
}

func (d *fakeDirectory) UpdatePassword(_ context.Context, phone, newPassword string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failWith != nil {
		return d.failWith
	}
	a, ok := d.byPhone[phone]
	if !ok {
		return ErrAccountNotFound
	}
	a.password = newPassword
	return nil
}

func (d *fakeDirectory) ValidatePassword(_ context.Context, account Account, password string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.validateCalls++
	if d.failWith != nil {
		return false, d.failWith
	}
	a, ok := d.byPhone[account.Phone]
	if !ok {
		return false, ErrAccountNotFound
	}
	return a.password == password, nil
}

func (d *fakeDirectory) IsLocked(_ context.Context, accountID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failWith != nil {
		return false, d.failWith
	}
	return d.locked[accountID], nil
}

func (d *fakeDirectory) RecordLoginAttempt(_ context.Context, accountID, ip, device string, success bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failAttempts != nil {
		return d.failAttempts
	}
	d.attempts = append(d.attempts, loginAttempt{accountID: accountID, ip: ip, device: device, success: success})
	return nil
}

func (d *fakeDirectory) loginAttempts() []loginAttempt {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]loginAttempt, len(d.attempts))
	copy(out, d.attempts)
	return out
}

// sequenceGenerator yields the given codes in order and then repeats the
// last one.
func sequenceGenerator(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func(int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

type testEnv struct {
	engine *Engine
	mr     *miniredis.Miniredis
	rdb    *redis.Client
	clock  *testClock
	sms    *recordingSMS
	dir    *fakeDirectory
	audit  *ChannelSink
}

type testOption func(*Config, *Builder)

func withGenerator(codes ...string) testOption {
	return func(_ *Config, b *Builder) {
		b.WithCodeGenerator(sequenceGenerator(codes...))
	}
}

func withConfig(mutate func(*Config)) testOption {
	return func(cfg *Config, _ *Builder) {
		mutate(cfg)
	}
}

func testJWTKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return priv
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testJWTKey(t)
	cfg.JWT.Issuer = "phoneauth-test"
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 256
	cfg.Audit.DropIfFull = false
	return cfg
}

func newTestEnv(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		mr:    mr,
		rdb:   rdb,
		clock: newTestClock(),
		sms:   &recordingSMS{},
		dir:   newFakeDirectory(),
		audit: NewChannelSink(512),
	}

	hasher, err := hashing.NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}

	cfg := testConfig(t)
	b := New().
		WithRedis(rdb).
		WithAccountDirectory(env.dir).
		WithSMSSender(env.sms).
		WithClock(env.clock).
		WithCodeHasher(hasher).
		WithLogger(logx.Discard()).
		WithAuditSink(env.audit)
	for _, opt := range opts {
		opt(&cfg, b)
	}
	b.WithConfig(cfg)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// auditEvents closes the engine and returns every event it emitted.
func (env *testEnv) auditEvents() []AuditEvent {
	env.engine.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-env.audit.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func (env *testEnv) registerAndVerify(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if err := env.engine.BeginRegistration(ctx, testPhone, "Lina Haddad"); err != nil {
		t.Fatalf("BeginRegistration failed: %v", err)
	}
	if err := env.engine.VerifyRegistrationCode(ctx, testPhone, env.sms.last(t).code); err != nil {
		t.Fatalf("VerifyRegistrationCode failed: %v", err)
	}
}
