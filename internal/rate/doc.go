// Package rate throttles failed password sign-ins of the local identity
// service.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit. Keys are
// <prefix>:si:<lower-cased email>.
//
// # What this package must NOT do
//
//   - Decide what counts as a failure; the caller records failures.
//   - Be imported outside the goAuthState module.
package rate
