// Package memdir is an in-memory goPhoneAuth.AccountDirectory for tests,
// demos and single-process deployments.
//
// Passwords are hashed with bcrypt. Lockout is a consecutive-failure
// threshold followed by a cooldown; any successful login or password update
// resets the counter.
package memdir
