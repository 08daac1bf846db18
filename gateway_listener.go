package goAuthState

import (
	"context"
	"sync"

	"github.com/MrEthical07/goAuthState/identity"
)

// SubscribeToAuthChanges registers the gateway with the client's ambient
// session notifications. Call it once at startup.
//
// A notification naming a user other than the client's current one is
// stale and ignored.
//
// A notification carrying a user resolves its ID token and publishes
// Authenticated or AuthenticatedAnonymously; a token failure publishes
// Failed. A notification without a user starts an anonymous sign-in, unless
// one has already signed a user in by the time the notification is handled.
//
// ctx is used for the calls made from notifications. The returned func
// removes the listener and may be called more than once.
func (g *Gateway) SubscribeToAuthChanges(ctx context.Context) (unsubscribe func()) {
	if err := g.ready(); err != nil {
		return func() {}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stop := g.client.OnAuthStateChanged(func(user *identity.User) {
		g.handleAuthChange(ctx, user)
	})

	var once sync.Once
	return func() {
		once.Do(stop)
	}
}

func (g *Gateway) handleAuthChange(ctx context.Context, user *identity.User) {
	const op = "auth_state_changed"
	if g.ready() != nil || ctx.Err() != nil {
		return
	}
	ctx, log := g.begin(ctx, op)

	g.metrics.Inc(MetricAuthStateChange)

	if user == nil {
		if _, ok := g.client.CurrentUser(); ok {
			log.V(1).Info("user signed in before notification was handled")
			return
		}
		_ = g.signInAnonymously(ctx, log, op)
		return
	}

	if cur, ok := g.client.CurrentUser(); !ok || cur.UID != user.UID {
		log.V(1).Info("notification superseded by a later sign-in or sign-out", "uid", user.UID)
		return
	}

	token, err := g.resolveToken(ctx, *user)
	if err != nil {
		log.Error(err, "token resolution failed", "uid", user.UID)
		g.publish(log, FailedSession(err))
		g.emitAudit(ctx, auditEventTokenFailure, op, "", false, user.UID, err, nil)
		return
	}

	g.publish(log, sessionForUser(*user, token))
}
