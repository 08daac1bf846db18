// Package local is a self-hosted identity provider backed by Redis.
//
// A [Service] stores accounts, Argon2id password hashes, federated provider
// links and single-use email action codes, and signs ID tokens. Each user
// agent gets its own [Client], which implements [identity.Client] and can be
// handed to goAuthState.Builder.WithClient.
//
// Popup sign-in is delegated to an [Authorizer]; [StaticAuthorizer] answers
// from a fixed table. Verification and password reset emails go through a
// [Mailer]; [MemoryMailer] keeps them so the embedded codes can be redeemed
// with [Service.ApplyActionCode] and [Service.ConfirmPasswordReset].
//
// Redis keys, all under Config.RedisPrefix:
//
//	acct:<uid>                   account record (JSON)
//	email:<lowercased email>     uid owning the address
//	fed:<provider>:<subject>     uid owning the federated identity
//	pending:<id>                 credential waiting to be linked
//	oob:<code id>                email action code
//	si:<lowercased email>        failed password sign-in counter
package local
