package middleware

import (
	"context"
	"net/http"
	"strings"

	goPhoneAuth "github.com/MrEthical07/goPhoneAuth"
)

// TokenValidator is satisfied by *goPhoneAuth.Engine.
type TokenValidator interface {
	ValidateAccessToken(token string) (*goPhoneAuth.Claims, error)
}

type claimsContextKey struct{}

func ClaimsFromContext(ctx context.Context) (*goPhoneAuth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*goPhoneAuth.Claims)
	return claims, ok
}

func RequireAccessToken(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateAccessToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}
