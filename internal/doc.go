// Package internal contains helper utilities that are intentionally private to fxauth.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for every Engine operation
//   - rate — core Redis-backed rate limit primitives
//
// # What this package must NOT do
//
//   - Export types that appear in the public fxauth API.
//   - Be imported by any package outside the fxauth module.
package internal
