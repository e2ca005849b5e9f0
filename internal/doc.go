// Package internal holds the goPhoneAuth building blocks that are not part
// of the public API.
//
//   - audit: async event dispatch and sinks
//   - codes: one-time code generation, issuance and verification
//   - flows: registration, password reset, login and refresh orchestration
//   - limiters: Redis-backed issue throttle
//   - logx: slog construction and phone masking
//   - metrics: lock-free counters and latency histograms
//   - stores: Redis and MongoDB drivers for code records
package internal
