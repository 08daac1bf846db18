package goAuthState

import (
	"context"
	"time"

	"github.com/MrEthical07/goAuthState/identity"
	"github.com/go-logr/logr"
)

// SignInWithFacebook signs in through the Facebook popup.
//
// When the email is already registered under another method the gateway
// tries to link the Facebook credential onto that account: it prompts the
// first supported registered provider with the email as login hint and links
// the pending credential to the result. Accounts registered only with a
// password are never linked; the collision error is reported and the session
// settles to Unauthenticated.
func (g *Gateway) SignInWithFacebook(ctx context.Context, h Handlers) error {
	const op = "sign_in_with_facebook"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	g.publish(log, LoadingSession())

	start := time.Now()
	u, err := g.client.SignInWithPopup(ctx, identity.ProviderFacebook, identity.PopupOptions{})
	g.metrics.Observe(MetricSignInLatency, time.Since(start))
	if err == nil {
		return g.completeSignIn(ctx, log, op, identity.ProviderFacebook, u, h)
	}

	collision, ok := identity.AsAccountExists(err)
	if !ok {
		return g.failPopup(ctx, log, op, identity.ProviderFacebook, err, h)
	}

	g.metrics.Inc(MetricCredentialCollision)
	g.emitAudit(ctx, auditEventCredentialCollision, op, identity.ProviderFacebook, false, "", err, nil)

	methods, lookupErr := g.client.FetchSignInMethodsForEmail(ctx, collision.Email)
	if lookupErr != nil {
		return g.failLink(ctx, log, op, lookupErr, h)
	}

	if onlyPasswordProvider(methods) {
		log.Info("password-only account, credential not linked", "email", collision.Email)
		g.metrics.Inc(MetricSignInFailure)
		g.publish(log, UnauthenticatedSession(err))
		return h.route(err)
	}

	return g.linkCredential(ctx, log, op, collision, methods, h)
}

// linkCredential re-authenticates the existing account with its first
// supported registered provider and attaches the pending credential.
func (g *Gateway) linkCredential(
	ctx context.Context,
	log logr.Logger,
	op string,
	collision *identity.AccountExistsError,
	methods []identity.ProviderID,
	h Handlers,
) error {
	provider, ok := g.linkProvider(methods)
	if !ok {
		return g.failLink(ctx, log, op, ErrProviderLinkingUnsupported, h)
	}

	log.V(1).Info("linking credential", "provider", provider.String(), "pending", collision.Credential.ProviderID.String())

	existing, err := g.client.SignInWithPopup(ctx, provider, identity.PopupOptions{LoginHint: collision.Email})
	if err != nil {
		return g.failLink(ctx, log, op, err, h)
	}

	linked, err := g.client.LinkWithCredential(ctx, existing, collision.Credential)
	if err != nil {
		return g.failLink(ctx, log, op, err, h)
	}

	token, err := g.resolveToken(ctx, linked)
	if err != nil {
		return g.failLink(ctx, log, op, err, h)
	}

	g.metrics.Inc(MetricCredentialLinkSuccess)
	g.metrics.Inc(MetricSignInSuccess)
	g.publish(log, sessionForUser(linked, token))
	g.emitAudit(ctx, auditEventCredentialLinked, op, collision.Credential.ProviderID, true, linked.UID, nil, func() map[string]string {
		return map[string]string{"via": provider.String()}
	})
	h.success(linked)
	return nil
}

// linkProvider picks the first registered method the gateway may prompt.
func (g *Gateway) linkProvider(methods []identity.ProviderID) (identity.ProviderID, bool) {
	for _, m := range methods {
		for _, supported := range g.config.Linking.SupportedProviders {
			if m == supported {
				return m, true
			}
		}
	}
	return "", false
}

func (g *Gateway) failLink(ctx context.Context, log logr.Logger, op string, cause error, h Handlers) error {
	err := wrap(ErrPopupSignInFailed, cause)
	log.Error(err, "credential linking failed")
	g.metrics.Inc(MetricCredentialLinkFailure)
	g.metrics.Inc(MetricSignInFailure)
	g.publish(log, UnauthenticatedSession(err))
	g.emitAudit(ctx, auditEventCredentialLinkFailure, op, identity.ProviderFacebook, false, "", err, nil)
	return h.route(err)
}

/*
====================================
PROVIDER LOOKUPS
====================================
*/

// ProvidersForEmail returns the sign-in methods registered for email.
func (g *Gateway) ProvidersForEmail(ctx context.Context, email string) ([]identity.ProviderID, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	return g.client.FetchSignInMethodsForEmail(ctx, email)
}

// UserHasOnlyEmailProvider reports whether the only method registered for
// email is the password provider. An empty email means the signed-in user's
// email; with nobody signed in the result is false.
func (g *Gateway) UserHasOnlyEmailProvider(ctx context.Context, email string) (bool, error) {
	if err := g.ready(); err != nil {
		return false, err
	}

	if email == "" {
		u, ok := g.client.CurrentUser()
		if !ok || u.Email == "" {
			return false, nil
		}
		email = u.Email
	}

	methods, err := g.client.FetchSignInMethodsForEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return onlyPasswordProvider(methods), nil
}

func onlyPasswordProvider(methods []identity.ProviderID) bool {
	return len(methods) == 1 && methods[0] == identity.ProviderPassword
}
