// Package limiters provides Redis-backed request throttles for code issuance.
//
// # Limiters
//
//   - [IssueThrottle]: fixed window per (purpose, subject), optionally per IP.
//
// Limiters are nil-safe: calling Check on a nil receiver returns nil.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Policy thresholds
// come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goPhoneAuth or any sibling internal package.
//   - Make policy decisions beyond counting; flow functions decide consequences.
package limiters
