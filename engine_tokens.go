package goPhoneAuth

import (
	"context"

	"github.com/MrEthical07/goPhoneAuth/internal/flows"
)

// RefreshTokens exchanges a refresh token for a new pair. The account is
// reloaded so the pair carries the current role; locked accounts get
// ErrAccountLocked and unknown or mismatched accounts ErrTokenInvalid.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := flows.RunRefreshTokens(ctx, refreshToken, flows.RefreshDeps{
		ParseRefresh: func(token string) (flows.RefreshClaims, error) {
			claims, err := e.jwtManager.ParseRefresh(token)
			if err != nil {
				return flows.RefreshClaims{}, err
			}
			return flows.RefreshClaims{AccountID: claims.AccountID(), Phone: claims.Phone}, nil
		},
		FindAccountByPhone: e.findAccountByPhone,
		IsLocked: func(ctx context.Context, accountID string) (bool, error) {
			return e.directory.IsLocked(ctx, accountID)
		},
		IssueTokens:     e.issueTokens,
		MapBackendError: e.mapBackendError,
		MetricInc:       e.metricInc,
		EmitAudit:       e.emitAudit,
		Event:           auditEventTokenRefresh,
		Metrics: flows.RefreshMetrics{
			Success: int(MetricTokenRefreshSuccess),
			Failure: int(MetricTokenRefreshFailure),
		},
		Errors: flows.RefreshErrors{
			EngineNotReady:  ErrEngineNotReady,
			TokenInvalid:    ErrTokenInvalid,
			AccountLocked:   ErrAccountLocked,
			AccountNotFound: ErrAccountNotFound,
		},
	})
	if err != nil {
		return nil, err
	}
	return toTokenPair(pair), nil
}

// ValidateAccessToken verifies signature, expiry, issuer and audience of an
// access token without touching any backend. Refresh tokens are rejected.
func (e *Engine) ValidateAccessToken(token string) (*Claims, error) {
	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (e *Engine) issueTokens(accountID, phone, role string) (flows.TokenPair, error) {
	pair, err := e.jwtManager.Issue(accountID, phone, role)
	if err != nil {
		return flows.TokenPair{}, err
	}
	return flows.TokenPair{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		Role:             role,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

func toTokenPair(p flows.TokenPair) *TokenPair {
	return &TokenPair{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		Role:             p.Role,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
