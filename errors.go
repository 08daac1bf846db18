package goAuthState

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goAuthState/identity"
)

var (
	// ErrPopupSignInFailed wraps failures of Google or Facebook popup sign-in.
	ErrPopupSignInFailed = errors.New("popup sign-in failed")
	// ErrAccountExistsWithDifferentCredential is the provider collision error.
	// It is the same value as identity.ErrAccountExistsWithDifferentCredential.
	ErrAccountExistsWithDifferentCredential = identity.ErrAccountExistsWithDifferentCredential
	// ErrProviderLinkingUnsupported is returned when no registered sign-in
	// method of a colliding account can be prompted for linking.
	ErrProviderLinkingUnsupported = errors.New("account is linked to a provider that isn't supported")
	// ErrPasswordSignInFailed wraps email/password sign-in failures.
	ErrPasswordSignInFailed = errors.New("password sign-in failed")
	// ErrEmailAlreadyUsedForAuthentication is returned by password sign-in when
	// the email belongs to an account registered under another method.
	ErrEmailAlreadyUsedForAuthentication = errors.New("email already used for authentication")
	// ErrAccountCreationFailed wraps sign-up account creation failures.
	ErrAccountCreationFailed = errors.New("account creation failed")
	// ErrProfileUpdateFailed wraps display-name and email update failures.
	ErrProfileUpdateFailed = errors.New("profile update failed")
	// ErrEmailOperationFailed wraps verification and password-reset email failures.
	ErrEmailOperationFailed = errors.New("email operation failed")
	// ErrAnonymousSignInFailed wraps anonymous sign-in failures.
	ErrAnonymousSignInFailed = errors.New("anonymous sign-in failed")
	// ErrSignOutFailed wraps provider sign-out failures.
	ErrSignOutFailed = errors.New("sign-out failed")
	// ErrTokenUnavailable is returned when a signed-in user's ID token cannot be resolved.
	ErrTokenUnavailable = errors.New("id token unavailable")
	// ErrGatewayNotReady is returned by a nil or closed Gateway.
	ErrGatewayNotReady = errors.New("gateway not initialized")
)

// wrap attaches a taxonomy kind to cause while keeping cause matchable with
// errors.Is and errors.As.
func wrap(kind, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, kind) {
		return cause
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
