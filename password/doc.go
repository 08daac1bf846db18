// Package password hashes local account passwords with Argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verify reads the parameters from the stored hash, so raising the cost in
// [Config] does not invalidate existing accounts; [Argon2.NeedsRehash]
// reports which ones should be re-hashed on their next sign-in.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other goAuthState package.
//   - Log plaintext passwords.
package password
