package local

import (
	"context"
	"strings"
	"sync"

	"github.com/MrEthical07/goAuthState/identity"
)

// FederatedIdentity is what a popup provider returns about the user.
type FederatedIdentity struct {
	Subject       string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// Authorizer runs the interactive part of a popup sign-in and returns the
// identity the provider vouched for. Returning identity.ErrPopupClosed means
// the user abandoned the popup.
type Authorizer interface {
	Authorize(ctx context.Context, provider identity.ProviderID, opts identity.PopupOptions) (FederatedIdentity, error)
}

// StaticAuthorizer answers popups from a fixed table, standing in for the
// user picking an account.
type StaticAuthorizer struct {
	mu         sync.Mutex
	identities map[identity.ProviderID][]FederatedIdentity
}

// NewStaticAuthorizer returns an empty authorizer; every popup is closed
// until an identity is added.
func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{identities: map[identity.ProviderID][]FederatedIdentity{}}
}

// Add registers an account the user can pick for provider.
func (a *StaticAuthorizer) Add(provider identity.ProviderID, id FederatedIdentity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identities[provider] = append(a.identities[provider], id)
}

// Authorize picks the account matching opts.LoginHint, or the first one when
// no hint is given.
func (a *StaticAuthorizer) Authorize(ctx context.Context, provider identity.ProviderID, opts identity.PopupOptions) (FederatedIdentity, error) {
	if err := ctx.Err(); err != nil {
		return FederatedIdentity{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	candidates := a.identities[provider]
	if len(candidates) == 0 {
		return FederatedIdentity{}, identity.ErrPopupClosed
	}
	if opts.LoginHint == "" {
		return candidates[0], nil
	}
	for _, c := range candidates {
		if strings.EqualFold(c.Email, opts.LoginHint) {
			return c, nil
		}
	}
	return FederatedIdentity{}, identity.ErrPopupClosed
}
