package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	goPhoneAuth "github.com/MrEthical07/goPhoneAuth"
)

type fakeValidator struct {
	token  string
	claims *goPhoneAuth.Claims
}

func (f fakeValidator) ValidateAccessToken(token string) (*goPhoneAuth.Claims, error) {
	if token != f.token {
		return nil, goPhoneAuth.ErrTokenInvalid
	}
	return f.claims, nil
}

func okHandler(t *testing.T, wantRole string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatalf("claims missing from context")
		}
		if claims.Role != wantRole {
			t.Fatalf("role = %q, want %q", claims.Role, wantRole)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAccessToken(t *testing.T) {
	v := fakeValidator{token: "good", claims: &goPhoneAuth.Claims{Phone: "+963912345678", Role: "customer"}}
	h := RequireAccessToken(v)(okHandler(t, "customer"))

	if rec := serve(h, "Bearer good"); rec.Code != http.StatusNoContent {
		t.Fatalf("valid token: got %d", rec.Code)
	}
	if rec := serve(h, "bearer good"); rec.Code != http.StatusNoContent {
		t.Fatalf("lower-case scheme: got %d", rec.Code)
	}
	for _, header := range []string{"", "Bearer ", "Basic good", "Bearer bad"} {
		if rec := serve(h, header); rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: got %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireAccessTokenNilValidator(t *testing.T) {
	h := RequireAccessToken(nil)(http.NotFoundHandler())
	if rec := serve(h, "Bearer good"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	v := fakeValidator{token: "t", claims: &goPhoneAuth.Claims{Role: "customer"}}

	admin := RequireAccessToken(v)(RequireRole("admin")(http.NotFoundHandler()))
	if rec := serve(admin, "Bearer t"); rec.Code != http.StatusForbidden {
		t.Fatalf("got %d, want 403", rec.Code)
	}

	either := RequireAccessToken(v)(RequireRole("admin", "customer")(okHandler(t, "customer")))
	if rec := serve(either, "Bearer t"); rec.Code != http.StatusNoContent {
		t.Fatalf("got %d, want 204", rec.Code)
	}

	bare := RequireRole("customer")(http.NotFoundHandler())
	if rec := serve(bare, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("without claims: got %d, want 401", rec.Code)
	}
}

func TestClientInfo(t *testing.T) {
	var ip, device string
	h := ClientInfo(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip, device = goPhoneAuth.ClientFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "203.0.113.7:41234"
	req.Header.Set("User-Agent", "ios-app/3.1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if ip != "203.0.113.7" || device != "ios-app/3.1" {
		t.Fatalf("got ip=%q device=%q", ip, device)
	}
}
