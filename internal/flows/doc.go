// Package flows contains the token lifecycle flows (login, refresh
// rotation, logout, access validation) as plain functions over explicit
// dependency structs.
//
// Each flow returns a result struct whose Failure field classifies the
// outcome; the root package maps failure kinds onto its public sentinel
// errors and emits audit events. Flows never log and never touch the
// public API surface.
//
// # What this package must NOT do
//
//   - Import the root fxauth package.
//   - Decide which public error a failure maps to.
//   - Perform mass revocation (the Engine owns the containment step).
package flows
