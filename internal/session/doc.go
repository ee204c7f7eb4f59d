// Package session owns the signed-in Identity and the credential registry.
//
// The browser original kept a plaintext user object (password included, in
// some revisions) in localStorage and grew several competing schemas for it.
// This package settles on one schema and fixes the credential handling:
//
//   - "user" holds the current Identity with an HS256 session token
//     (golang-jwt); Restore rejects expired or foreign tokens and degrades
//     silently to signed-out.
//   - "registeredUsers" holds the registry of accounts with bcrypt password
//     hashes. Plaintext passwords are never written anywhere.
//   - "savedEmail" holds the remembered sign-in address when the user asked
//     for it.
//
// Password reset follows the original's email-link flow in shape: BeginReset
// mints a random token (returned to the caller for out-of-band delivery,
// only its SHA-256 digest is stored) and CompleteReset verifies and burns it.
//
// All operations are total: they return sentinel errors, never panic, and a
// failed write leaves prior state untouched.
package session
