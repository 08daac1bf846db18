// Package identity defines the contract between goAuthState and an external
// identity provider client.
//
// The [Client] interface covers the capabilities the coordinator relies on:
// popup sign-in for federated providers, password accounts, anonymous
// accounts, ID-token issuance, sign-in method lookup, email actions, profile
// updates, credential linking and ambient auth-state notifications.
//
// # Architecture boundaries
//
// This package owns only value types, sentinel errors and the interface. The
// protocol behind a provider (OAuth handshakes, token verification, session
// persistence) lives in the implementation, never here.
//
// # What this package must NOT do
//
//   - Import goAuthState or any implementation package.
//   - Perform I/O.
package identity
