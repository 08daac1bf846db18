// Package internal holds helpers private to goAuthState: random action-code
// identifiers and secrets, and their opaque wire encoding.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis fixed-window throttle for failed password sign-ins
//   - stores: Redis stores for email action codes and pending credentials
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAuthState API.
package internal
