// Package stores provides the persistence drivers behind the one-time-code
// [codes.Store] contract: a Redis driver and a MongoDB driver.
//
// # Design
//
// Both drivers keep one record per issued code and resolve "latest" by
// creation time (record ids are ULIDs, so ties sort by id). Mutations that
// touch attempts or the used flag are single-record conditional updates:
// a Lua script in Redis, FindOneAndUpdate filtered on is_used=false in
// MongoDB. DeleteActive in Redis runs under WATCH with bounded retries.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for code records.
// It does NOT generate or compare codes, and it does not decide expiry;
// those belong to internal/codes.
//
// # What this package must NOT do
//
//   - Import goPhoneAuth.
//   - Log or expose code hashes.
//   - Expire records as part of flow logic (the Redis retention TTL is a leak guard only).
package stores
