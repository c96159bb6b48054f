// Package rate provides internal primitives used to build Redis-backed rate limit keys,
// errors, and limiter behavior for security-sensitive authentication workflows.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - fl:  — login per-identifier
//   - fli: — login per-IP
//   - fr:  — refresh per-token-id
//
// # What this package must NOT do
//
//   - Implement credential or token policy (those live in the Engine).
//   - Be imported outside the fxauth module.
package rate
