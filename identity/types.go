package identity

import (
	"context"
	"time"
)

// ProviderID names a sign-in method. Values match the identifiers returned by
// [Client.FetchSignInMethodsForEmail].
type ProviderID string

const (
	// ProviderGoogle is the Google popup sign-in method.
	ProviderGoogle ProviderID = "google.com"
	// ProviderFacebook is the Facebook popup sign-in method.
	ProviderFacebook ProviderID = "facebook.com"
	// ProviderPassword is the email/password sign-in method.
	ProviderPassword ProviderID = "password"
	// ProviderAnonymous marks anonymous accounts. It is never registered
	// against an email address.
	ProviderAnonymous ProviderID = "anonymous"
)

// String returns the provider identifier.
func (p ProviderID) String() string {
	return string(p)
}

// User is the identity record owned by the provider. goAuthState treats it as
// opaque apart from Email and IsAnonymous.
type User struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
	IsAnonymous   bool
	ProviderIDs   []ProviderID
	CreatedAt     time.Time
}

// HasProvider reports whether p is linked to the user.
func (u User) HasProvider(p ProviderID) bool {
	for _, id := range u.ProviderIDs {
		if id == p {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of u.
func (u User) Clone() User {
	out := u
	if u.ProviderIDs != nil {
		out.ProviderIDs = append([]ProviderID(nil), u.ProviderIDs...)
	}
	return out
}

// Credential is a provider credential that could not be used to sign in
// directly, typically because its email is already registered under another
// method. It can later be attached with [Client.LinkWithCredential].
type Credential struct {
	ProviderID ProviderID
	Email      string
	// Secret is an opaque handle understood only by the issuing client.
	Secret string
}

// PopupOptions carries provider custom parameters for a popup sign-in.
type PopupOptions struct {
	// LoginHint pre-fills the account chooser (login_hint).
	LoginHint        string
	CustomParameters map[string]string
}

// ActionSettings controls the link embedded in verification and reset emails.
type ActionSettings struct {
	URL             string
	HandleCodeInApp bool
}

// Profile holds the mutable profile fields.
type Profile struct {
	DisplayName string
}

// AuthStateListener receives the signed-in user after every ambient session
// change, or nil when no user is signed in.
type AuthStateListener func(user *User)

// Client is an identity provider client bound to one user agent. Every method
// that talks to the provider may block on network I/O and honours ctx.
type Client interface {
	SignInWithPopup(ctx context.Context, provider ProviderID, opts PopupOptions) (User, error)
	SignInWithEmailAndPassword(ctx context.Context, email, password string) (User, error)
	CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (User, error)
	SignInAnonymously(ctx context.Context) (User, error)
	SignOut(ctx context.Context) error

	// CurrentUser returns the signed-in user, if any.
	CurrentUser() (User, bool)
	// IDToken returns a bearer token for user, refreshing it when expired or
	// when forceRefresh is set.
	IDToken(ctx context.Context, user User, forceRefresh bool) (string, error)

	FetchSignInMethodsForEmail(ctx context.Context, email string) ([]ProviderID, error)
	SendPasswordResetEmail(ctx context.Context, email string, settings ActionSettings) error
	SendEmailVerification(ctx context.Context, user User, settings ActionSettings) error
	UpdateEmail(ctx context.Context, user User, email string) (User, error)
	UpdateProfile(ctx context.Context, user User, profile Profile) (User, error)
	LinkWithCredential(ctx context.Context, user User, credential Credential) (User, error)

	// OnAuthStateChanged registers listener. The listener is called once with
	// the current state shortly after registration and again after every
	// sign-in or sign-out. The returned func removes the listener.
	OnAuthStateChanged(listener AuthStateListener) (unsubscribe func())
}
