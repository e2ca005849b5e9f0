// Package goPhoneAuth verifies phone numbers with one-time SMS codes and
// issues JWT access and refresh tokens for registration, password reset and
// login.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goPhoneAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces ([AccountDirectory], [SMSSender], [Clock],
// [CodeHasher]) and the error taxonomy. Code generation, storage and
// verification live in internal/codes with Redis and MongoDB drivers in
// internal/stores; flow orchestration lives in internal/flows.
//
// # What this package must NOT do
//
//   - Store or log a plaintext code. Only the [CodeHasher] digest is
//     persisted, and phone numbers are masked in logs and audit events.
//   - Own account data, password hashing or lockout policy. Those belong to
//     the [AccountDirectory].
//   - Reveal whether a phone is registered from RequestPasswordReset or Login.
//
// # Flows
//
// Registration: BeginRegistration, VerifyRegistrationCode,
// CompleteRegistration. Password reset: RequestPasswordReset,
// VerifyResetCode, ResetPassword. Login and RefreshTokens return a
// [TokenPair]. The finalize step of each code flow must follow a
// successful verification within OTPConfig.GraceWindow.
package goPhoneAuth
