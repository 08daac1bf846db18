// Package stores provides Redis-backed, short-lived records for the local
// identity service: out-of-band action codes (email verification, password
// reset) and federated credentials waiting to be linked.
//
// # Design
//
// Action codes are versioned binary records with a TTL. Consume runs a Lua
// script that validates and deletes the record in one round trip, counting
// failed attempts and deleting the record when they run out. Only the
// SHA-256 of the secret is stored, and the final comparison is constant time.
//
// Pending credentials are JSON with a TTL and are read with GETDEL, so each
// can be linked at most once.
//
// # What this package must NOT do
//
//   - Import goAuthState or any sibling internal package.
//   - Log or expose plaintext secrets.
package stores
