// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunBeginRegistration, RunLogin, RunResetPassword, etc.)
// accepts a typed dependency struct and returns results without side-effects
// beyond those dependencies. The Engine builds the dependency structs and
// maps collaborator errors into its public sentinels.
//
// # Architecture boundaries
//
// Flow functions own step ordering: what is checked first, which records are
// cleaned up, which audit events and metrics fire. They do NOT own the code
// store, the account directory, or the token manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goPhoneAuth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency functions.
package flows
