// Package fxauth provides an embeddable token lifecycle engine: JWT access
// tokens, rotating JWT refresh tokens with reuse detection, and a
// store-backed revocation layer over Redis or Postgres.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// fxauth is the public surface. It exposes [Engine], [Builder], [Config], and value types
// (TokenPair, AuthResult, MetricsSnapshot, etc.). All internal coordination — flow
// orchestration, rate limiting, audit dispatch — lives under internal/ and is never
// exported. Token encoding lives in the jwt sub-package and persistence in store.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is allocation-only
//     until Build).
//   - Import any sub-package that re-imports fxauth (no import cycles).
//
// # Performance contract
//
// ValidateAccess is the hot path. It performs one signature verification and at most one
// store round-trip (the revocation denylist check). Login and Refresh are allowed the
// store round-trips their flows require.
package fxauth
