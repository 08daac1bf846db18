// Package goAuthState coordinates the authentication session of one user
// agent against an external identity provider.
//
// A [Gateway] wraps an [identity.Client] behind a uniform set of operations
// (popup sign-in with Google or Facebook, email/password sign-in and
// sign-up, anonymous sessions, sign-out, email actions and profile updates)
// and publishes the outcome of each one as a [Session] to a [Store]. The Store
// holds exactly one current Session and notifies observers synchronously, in
// registration order, on every publish.
//
// # Architecture boundaries
//
// goAuthState is the public surface. It exposes [Gateway], [Store],
// [Builder], [Config] and value types (Session, Handlers, MetricsSnapshot).
// Audit dispatch lives under internal/. The provider protocol lives behind
// the identity package; identity/local is a Redis-backed implementation used
// by the demo command and the integration tests.
//
// # Rollback
//
// Email sign-in and sign-up capture a [Snapshot] of the store before
// publishing Loading and [Store.Restore] it when the attempt fails, so the
// session observed after a failed attempt equals the one observed before it.
//
// # What this package must NOT do
//
//   - Validate or verify ID tokens.
//   - Persist sessions; persistence belongs to the identity client.
//   - Import identity/local or any other implementation package.
package goAuthState
