// Package store persists the server-side token state: one record per live
// refresh token, a denylist of revoked access token ids, and an optional
// per-subject index of issued access tokens.
//
// # Atomicity contract
//
// [Store.RevokeRefresh] is the rotation primitive. It flips the revoked
// flag only if the record exists and is not already revoked, and reports
// whether this caller performed the flip. Under concurrent presentation of
// the same refresh token exactly one caller observes true; everyone else
// observes false and is treated as a reuse by the rotation guard.
//
// # Implementations
//
// [NewRedisStore] encodes records in a fixed-layout binary blob so the
// revoked flag sits at a known byte offset, letting Lua scripts flip it
// server-side without a read-modify-write round trip. [NewPostgresStore]
// gets the same guarantee from a conditional UPDATE.
//
// # What this package must NOT do
//
//   - Decode or verify token signatures (the jwt package owns the codec).
//   - Decide rotation or reuse policy (the Engine and its flows own that).
package store
