package codes

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrDeliveryFailed = errors.New("code delivery failed")
	ErrHashFailed     = errors.New("code hashing failed")
)

// Policy holds the per-engine one-time-code limits.
type Policy struct {
	CodeLength  int
	Expiry      time.Duration
	MaxAttempts int
}

// Hasher is the one-way capability used to store and compare codes.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(plain, digest string) (bool, error)
}

// SendFunc delivers a plaintext code to subject. A non-nil error means the
// code was not accepted for delivery.
type SendFunc func(ctx context.Context, subject, code string, purpose Purpose) error

// IssueResult describes a freshly issued code.
type IssueResult struct {
	RecordID  string
	ExpiresAt time.Time
}

// IssuerDeps wires an Issuer.
type IssuerDeps struct {
	Store    Store
	Hasher   Hasher
	Send     SendFunc
	Generate GenerateFunc
	Policy   Policy
	Now      func() time.Time
}

// Issuer creates, persists and dispatches one-time codes.
type Issuer struct {
	deps IssuerDeps
}

func NewIssuer(deps IssuerDeps) *Issuer {
	if deps.Generate == nil {
		deps.Generate = NewCode
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Issuer{deps: deps}
}

// Issue replaces any existing records for (subject, purpose) with a new code
// and hands the plaintext to the sender. When delivery fails the new record
// stays in place; the next Issue supersedes it.
func (i *Issuer) Issue(ctx context.Context, subject string, purpose Purpose) (IssueResult, error) {
	if !purpose.Valid() {
		return IssueResult{}, fmt.Errorf("unknown code purpose %q", purpose)
	}

	code, err := i.deps.Generate(i.deps.Policy.CodeLength)
	if err != nil {
		return IssueResult{}, err
	}

	digest, err := i.deps.Hasher.Hash(code)
	if err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrHashFailed, err)
	}

	superseded, err := i.supersededHashes(ctx, subject, purpose)
	if err != nil {
		return IssueResult{}, err
	}

	if err := i.deps.Store.DeleteActive(ctx, subject, purpose); err != nil {
		return IssueResult{}, err
	}

	now := i.deps.Now()
	id, err := NewRecordID(now)
	if err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrRandomSource, err)
	}

	record := &Record{
		ID:         id,
		Subject:    subject,
		Purpose:    purpose,
		CodeHash:   digest,
		ExpiresAt:  now.Add(i.deps.Policy.Expiry),
		CreatedAt:  now,
		UpdatedAt:  now,
		Superseded: superseded,
	}
	if err := i.deps.Store.Create(ctx, record); err != nil {
		return IssueResult{}, err
	}

	result := IssueResult{RecordID: id, ExpiresAt: record.ExpiresAt}
	if err := i.deps.Send(ctx, subject, code, purpose); err != nil {
		return result, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return result, nil
}

// supersededHashes carries the hash of the code about to be replaced, plus
// the ones it replaced itself, into the next record.
func (i *Issuer) supersededHashes(ctx context.Context, subject string, purpose Purpose) ([]string, error) {
	previous, err := i.deps.Store.FindLatestUnused(ctx, subject, purpose)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	hashes := append([]string{previous.CodeHash}, previous.Superseded...)
	if len(hashes) > MaxSuperseded {
		hashes = hashes[:MaxSuperseded]
	}
	return hashes, nil
}
