// Package middleware exposes an HTTP middleware adapter for access token
// enforcement built on top of fxauth.Engine validation.
//
// [Guard] reads the Authorization header, calls Engine.ValidateAccess, and
// injects the validated result into the request context for handlers to read
// via [AuthResultFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT implement
// authentication logic itself — all decisions are delegated to Engine.ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access the token store (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.ValidateAccess.
package middleware
