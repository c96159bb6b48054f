// Package jwt implements the signed token codec: kind-tagged, expiring
// payloads carrying a subject and a unique token id (jti), minted and
// verified with configured signing keys.
//
// # Decode contract
//
// [Manager.Parse] never panics on garbage input and always fails with one
// of three typed sentinels: [ErrBadSignature], [ErrExpired], or
// [ErrMalformed]. Callers branch on errors.Is, never on error text.
//
// # Architecture boundaries
//
// This package owns encoding, signing, and structural validation only.
// Refresh-token persistence, rotation policy, reuse detection, and the
// access denylist are handled by the Engine and the store package.
package jwt
