package memdir

import (
	"context"
	"errors"
	"sync"
	"time"

	goPhoneAuth "github.com/MrEthical07/goPhoneAuth"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrPhoneNotVerified is returned by SetPassword before the phone was
// verified.
var ErrPhoneNotVerified = errors.New("phone not verified")

// Config tunes the directory. Zero fields take the defaults.
type Config struct {
	DefaultRole   string
	LockThreshold int
	LockCooldown  time.Duration
	BcryptCost    int
	Now           func() time.Time
}

// LoginAttempt is one entry of the login history.
type LoginAttempt struct {
	AccountID string
	IP        string
	Device    string
	Success   bool
	At        time.Time
}

type entry struct {
	account      goPhoneAuth.Account
	passwordHash []byte
	failures     int
	lockedUntil  time.Time
}

// Directory implements goPhoneAuth.AccountDirectory.
type Directory struct {
	cfg Config

	mu      sync.RWMutex
	byPhone map[string]*entry
	byID    map[string]*entry
	history map[string][]LoginAttempt
}

var _ goPhoneAuth.AccountDirectory = (*Directory)(nil)

func New(cfg Config) *Directory {
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = "customer"
	}
	if cfg.LockThreshold <= 0 {
		cfg.LockThreshold = 5
	}
	if cfg.LockCooldown <= 0 {
		cfg.LockCooldown = 15 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Directory{
		cfg:     cfg,
		byPhone: make(map[string]*entry),
		byID:    make(map[string]*entry),
		history: make(map[string][]LoginAttempt),
	}
}

// CreateUnverifiedAccount creates an account without a password. A phone
// whose registration was never completed keeps its id and gets the new
// name; a completed one is a conflict.
func (d *Directory) CreateUnverifiedAccount(ctx context.Context, phone, fullName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.byPhone[phone]; ok {
		if existing.passwordHash != nil {
			return "", goPhoneAuth.ErrAccountAlreadyExists
		}
		existing.account.FullName = fullName
		return existing.account.ID, nil
	}

	e := &entry{
		account: goPhoneAuth.Account{
			ID:       uuid.NewString(),
			Phone:    phone,
			FullName: fullName,
			Role:     d.cfg.DefaultRole,
		},
	}
	d.byPhone[phone] = e
	d.byID[e.account.ID] = e
	return e.account.ID, nil
}

func (d *Directory) MarkPhoneVerifiedAndCreateProfile(ctx context.Context, phone string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.byPhone[phone]
	if !ok {
		return goPhoneAuth.ErrAccountNotFound
	}
	e.account.PhoneVerified = true
	return nil
}

func (d *Directory) SetPassword(ctx context.Context, phone, password, email string) (goPhoneAuth.Account, error) {
	if err := ctx.Err(); err != nil {
		return goPhoneAuth.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cfg.BcryptCost)
	if err != nil {
		return goPhoneAuth.Account{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.byPhone[phone]
	if !ok {
		return goPhoneAuth.Account{}, goPhoneAuth.ErrAccountNotFound
	}
	if !e.account.PhoneVerified {
		return goPhoneAuth.Account{}, ErrPhoneNotVerified
	}
	e.passwordHash = hash
	e.account.Email = email
	return e.account, nil
}

// FindAccountByPhone only returns accounts whose registration completed.
func (d *Directory) FindAccountByPhone(ctx context.Context, phone string) (goPhoneAuth.Account, error) {
	if err := ctx.Err(); err != nil {
		return goPhoneAuth.Account{}, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.byPhone[phone]
	if !ok || e.passwordHash == nil {
		return goPhoneAuth.Account{}, goPhoneAuth.ErrAccountNotFound
	}
	return e.account, nil
}

// UpdatePassword replaces the password and clears any lockout.
func (d *Directory) UpdatePassword(ctx context.Context, phone, newPassword string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), d.cfg.BcryptCost)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.byPhone[phone]
	if !ok || e.passwordHash == nil {
		return goPhoneAuth.ErrAccountNotFound
	}
	e.passwordHash = hash
	e.failures = 0
	e.lockedUntil = time.Time{}
	return nil
}

func (d *Directory) ValidatePassword(ctx context.Context, account goPhoneAuth.Account, password string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.RLock()
	e, ok := d.byID[account.ID]
	var hash []byte
	if ok {
		hash = e.passwordHash
	}
	d.mu.RUnlock()

	if !ok || hash == nil {
		return false, goPhoneAuth.ErrAccountNotFound
	}

	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (d *Directory) IsLocked(ctx context.Context, accountID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.byID[accountID]
	if !ok {
		return false, goPhoneAuth.ErrAccountNotFound
	}
	return d.cfg.Now().Before(e.lockedUntil), nil
}

// RecordLoginAttempt appends to the history and applies the lockout policy.
func (d *Directory) RecordLoginAttempt(ctx context.Context, accountID, ip, device string, success bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := d.cfg.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.byID[accountID]
	if !ok {
		return goPhoneAuth.ErrAccountNotFound
	}

	d.history[accountID] = append(d.history[accountID], LoginAttempt{
		AccountID: accountID,
		IP:        ip,
		Device:    device,
		Success:   success,
		At:        now,
	})

	if success {
		e.failures = 0
		return nil
	}

	e.failures++
	if e.failures >= d.cfg.LockThreshold {
		e.failures = 0
		e.lockedUntil = now.Add(d.cfg.LockCooldown)
	}
	return nil
}

// History returns a copy of the recorded login attempts, oldest first.
func (d *Directory) History(accountID string) []LoginAttempt {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]LoginAttempt, len(d.history[accountID]))
	copy(out, d.history[accountID])
	return out
}

// SetRole changes the role stamped into future tokens.
func (d *Directory) SetRole(phone, role string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.byPhone[phone]
	if !ok {
		return goPhoneAuth.ErrAccountNotFound
	}
	e.account.Role = role
	return nil
}

// Lock locks the account until the given time, as an administrator would.
func (d *Directory) Lock(accountID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.byID[accountID]
	if !ok {
		return goPhoneAuth.ErrAccountNotFound
	}
	e.lockedUntil = until
	return nil
}
