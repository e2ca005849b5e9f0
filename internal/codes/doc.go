// Package codes implements the one-time-code primitive shared by every phone
// verification flow: generation, the record store contract, issuance, and
// verification.
//
// # Architecture boundaries
//
// Issuer and Verifier own the ordering rules for a single (subject, purpose)
// pair. Persistence is delegated to a [Store] implementation (see
// internal/stores), delivery to a [SendFunc], and hashing to a [Hasher].
//
// # What this package must NOT do
//
//   - Persist or log plaintext codes.
//   - Import goPhoneAuth (to avoid import cycles).
//   - Expire records in the background; expiry is evaluated lazily on Verify.
package codes
