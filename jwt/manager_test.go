package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newEdManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	m, err := NewManager(Config{
		AccessTTL:     7 * 24 * time.Hour,
		RefreshTTL:    30 * 24 * time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "phoneauth",
		Audience:      "mobile",
		Now:           now,
	})
	require.NoError(t, err)
	return m
}

func TestIssueAndParsePair(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newEdManager(t, func() time.Time { return now })

	pair, err := m.Issue("acc-1", "+963991234567", "customer")
	require.NoError(t, err)
	require.Equal(t, now.Add(7*24*time.Hour), pair.AccessExpiresAt)
	require.Equal(t, now.Add(30*24*time.Hour), pair.RefreshExpiresAt)

	access, err := m.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "acc-1", access.AccountID())
	require.Equal(t, "+963991234567", access.Phone)
	require.Equal(t, "customer", access.Role)
	require.Equal(t, TypeAccess, access.Type)
	require.NotEmpty(t, access.ID)

	refresh, err := m.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, TypeRefresh, refresh.Type)
	require.NotEqual(t, access.ID, refresh.ID)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := newEdManager(t, time.Now)

	pair, err := m.Issue("acc-1", "+963991234567", "customer")
	require.NoError(t, err)

	_, err = m.ParseAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
	require.ErrorIs(t, err, ErrWrongTokenType)

	_, err = m.ParseRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrWrongTokenType)
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	m := newEdManager(t, func() time.Time { return clock })

	pair, err := m.Issue("acc-1", "+963991234567", "customer")
	require.NoError(t, err)

	clock = now.Add(8 * 24 * time.Hour)
	_, err = m.ParseAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestTokenFromOtherKeyRejected(t *testing.T) {
	a := newEdManager(t, time.Now)
	b := newEdManager(t, time.Now)

	pair, err := a.Issue("acc-1", "+963991234567", "customer")
	require.NoError(t, err)

	_, err = b.ParseAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestHS256RoundTripAndAlgorithmPinning(t *testing.T) {
	hs, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	require.NoError(t, err)

	pair, err := hs.Issue("acc-2", "+15550001111", "admin")
	require.NoError(t, err)

	claims, err := hs.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)

	ed := newEdManager(t, time.Now)
	_, err = ed.ParseAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyOnlyManagerCannotIssue(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PublicKey:     pub,
	})
	require.NoError(t, err)

	_, err = m.Issue("acc-1", "+15550001111", "customer")
	require.Error(t, err)
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	_, err := NewManager(Config{AccessTTL: time.Hour, RefreshTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: make([]byte, 32)})
	require.Error(t, err)

	_, err = NewManager(Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: []byte("short")})
	require.Error(t, err)

	_, err = NewManager(Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, SigningMethod: "rs256"})
	require.Error(t, err)

	_, err = NewManager(Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, SigningMethod: MethodEd25519})
	require.Error(t, err)
}
