// Package jwt issues the ID tokens handed out by the local identity service.
// Tokens are signed with Ed25519 or HS256; verification is left to whoever
// consumes them.
package jwt
