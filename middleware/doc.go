// Package middleware adapts goPhoneAuth to net/http.
//
//   - [RequireAccessToken] verifies the bearer access token and stores its
//     claims in the request context.
//   - [RequireRole] admits only the listed roles; it must run after
//     RequireAccessToken.
//   - [ClientInfo] copies the caller's IP and user agent into the context so
//     Engine.Login records them with the attempt.
//
// Token checks are delegated to Engine.ValidateAccessToken. This package
// never parses tokens itself and never touches a backend.
package middleware
