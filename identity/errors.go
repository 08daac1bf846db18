package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountExistsWithDifferentCredential is returned by a popup sign-in
	// whose email is already registered under another sign-in method.
	ErrAccountExistsWithDifferentCredential = errors.New("account exists with different credential")
	// ErrUserNotFound is returned when no account matches the request.
	ErrUserNotFound = errors.New("user not found")
	// ErrWrongPassword is returned for a password mismatch.
	ErrWrongPassword = errors.New("wrong password")
	// ErrEmailAlreadyInUse is returned when creating or moving an account onto a registered email.
	ErrEmailAlreadyInUse = errors.New("email already in use")
	// ErrInvalidEmail is returned for a malformed email address.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrWeakPassword is returned when a password fails the provider policy.
	ErrWeakPassword = errors.New("weak password")
	// ErrPopupClosed is returned when the user dismisses a popup.
	ErrPopupClosed = errors.New("popup closed by user")
	// ErrUnsupportedProvider is returned for a provider the client cannot prompt.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrNoCurrentUser is returned by operations that need a signed-in user.
	ErrNoCurrentUser = errors.New("no current user")
	// ErrCredentialAlreadyInUse is returned when linking a credential owned by another account.
	ErrCredentialAlreadyInUse = errors.New("credential already in use")
	// ErrInvalidCredential is returned for an unknown or expired pending credential.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrInvalidActionCode is returned for an unknown, expired or used email action code.
	ErrInvalidActionCode = errors.New("invalid action code")
	// ErrTooManyRequests is returned when the provider throttles the caller.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrInvalidAPIKey is returned when a client is created with a key the provider does not accept.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrBackendUnavailable is returned when the provider's storage cannot be reached.
	ErrBackendUnavailable = errors.New("identity backend unavailable")
)

// AccountExistsError reports a popup sign-in collision. Email is the address
// that is already registered; Credential is the pending credential obtained
// from the popup, suitable for [Client.LinkWithCredential].
type AccountExistsError struct {
	Email      string
	Credential Credential
}

func (e *AccountExistsError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrAccountExistsWithDifferentCredential, e.Email, e.Credential.ProviderID)
}

// Unwrap lets errors.Is match [ErrAccountExistsWithDifferentCredential].
func (e *AccountExistsError) Unwrap() error {
	return ErrAccountExistsWithDifferentCredential
}

// AsAccountExists extracts an *AccountExistsError from err's chain.
func AsAccountExists(err error) (*AccountExistsError, bool) {
	var target *AccountExistsError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
