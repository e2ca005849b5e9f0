// Package hashing provides the salted one-way hashers used to store
// one-time codes and account passwords.
//
// # Implementations
//
//   - [Argon2]: Argon2id in PHC string form, the default code hasher:
//     $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//   - [Bcrypt]: golang.org/x/crypto/bcrypt, for deployments that already
//     standardise on bcrypt digests.
//
// Both satisfy the Hash/Compare contract: Hash salts every call, so equal
// inputs yield different digests, and Compare runs in constant time with
// respect to the digest.
//
// # What this package must NOT do
//
//   - Store or retrieve digests.
//   - Import any other goPhoneAuth package.
//   - Log plaintext inputs.
package hashing
