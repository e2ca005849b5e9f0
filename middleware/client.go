package middleware

import (
	"net"
	"net/http"

	goPhoneAuth "github.com/MrEthical07/goPhoneAuth"
)

// ClientInfo stores the remote IP and User-Agent in the request context.
// Forwarding headers are ignored; put a trusted proxy handler in front to
// rewrite RemoteAddr when needed.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		ctx := goPhoneAuth.WithClientIP(r.Context(), ip)
		if ua := r.UserAgent(); ua != "" {
			ctx = goPhoneAuth.WithDevice(ctx, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
