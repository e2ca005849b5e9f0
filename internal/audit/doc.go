// Package audit implements async event dispatching for verification, login
// and token operations.
//
// # Components
//
//   - [Sink] : event consumers (channel, JSON lines, slog, no-op).
//   - [Dispatcher] : buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event] : structured audit record keyed by event type, account and masked phone.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide
// which events to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goPhoneAuth or any sibling internal package.
//   - Receive plaintext codes or passwords.
package audit
