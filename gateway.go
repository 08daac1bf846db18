package goAuthState

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthState/identity"
	internalaudit "github.com/MrEthical07/goAuthState/internal/audit"
	"github.com/go-logr/logr"
	"golang.org/x/sync/singleflight"
)

// Gateway drives an [identity.Client] and publishes the outcome of every
// operation to its [Store].
//
// Every operation blocks until the provider call completes. A Gateway is safe
// for concurrent use; concurrent operations race on the Store and the last
// publish wins.
type Gateway struct {
	config  Config
	client  identity.Client
	store   *Store
	log     logr.Logger
	metrics *Metrics
	audit   *internalaudit.Dispatcher

	anonymous singleflight.Group
	closed    atomic.Bool
}

// Store returns the store the gateway publishes to.
func (g *Gateway) Store() *Store {
	if g == nil {
		return nil
	}
	return g.store
}

// Current returns the current session.
func (g *Gateway) Current() Session {
	if g == nil || g.store == nil {
		return UnauthenticatedSession(ErrGatewayNotReady)
	}
	return g.store.Current()
}

// ProviderConfig returns the provider section the gateway was built with.
func (g *Gateway) ProviderConfig() ProviderConfig {
	if g == nil {
		return ProviderConfig{}
	}
	return g.config.Provider
}

// MetricsSnapshot returns a copy of the gateway counters.
func (g *Gateway) MetricsSnapshot() MetricsSnapshot {
	if g == nil || g.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return g.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (g *Gateway) AuditDropped() uint64 {
	if g == nil || g.audit == nil {
		return 0
	}
	return g.audit.Dropped()
}

// Close flushes the audit dispatcher. Operations called after Close return
// [ErrGatewayNotReady].
func (g *Gateway) Close() {
	if g == nil {
		return
	}
	if g.closed.Swap(true) {
		return
	}
	if g.audit != nil {
		g.audit.Close()
	}
}

func (g *Gateway) ready() error {
	if g == nil || g.client == nil || g.store == nil || g.closed.Load() {
		return ErrGatewayNotReady
	}
	return nil
}

// begin attaches a correlation ID and returns a logger scoped to op.
func (g *Gateway) begin(ctx context.Context, op string) (context.Context, logr.Logger) {
	ctx, id := ensureCorrelationID(ctx)
	return ctx, g.log.WithValues("op", op, "correlationID", id)
}

func (g *Gateway) publish(log logr.Logger, s Session) {
	g.metrics.Inc(MetricSessionPublished)
	log.V(1).Info("session published", "status", s.Status.String(), "uid", s.UserID())
	g.store.Publish(s)
}

func (g *Gateway) rollback(ctx context.Context, log logr.Logger, op string, snap Snapshot) {
	g.metrics.Inc(MetricSessionRollback)
	log.V(1).Info("session restored", "status", snap.Session().Status.String())
	g.store.Restore(snap)
	g.emitAudit(ctx, auditEventSessionRollback, op, "", true, snap.Session().UserID(), nil, nil)
}

func (g *Gateway) resolveToken(ctx context.Context, u identity.User) (string, error) {
	token, err := g.client.IDToken(ctx, u, false)
	if err != nil {
		g.metrics.Inc(MetricTokenFailure)
		return "", wrap(ErrTokenUnavailable, err)
	}
	return token, nil
}

/*
====================================
POPUP SIGN-IN
====================================
*/

// SignInWithGoogle signs in through the Google popup. It publishes Loading,
// then Authenticated on success or Unauthenticated carrying the error.
func (g *Gateway) SignInWithGoogle(ctx context.Context, h Handlers) error {
	const op = "sign_in_with_google"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	g.publish(log, LoadingSession())

	start := time.Now()
	u, err := g.client.SignInWithPopup(ctx, identity.ProviderGoogle, identity.PopupOptions{})
	g.metrics.Observe(MetricSignInLatency, time.Since(start))
	if err != nil {
		return g.failPopup(ctx, log, op, identity.ProviderGoogle, err, h)
	}

	return g.completeSignIn(ctx, log, op, identity.ProviderGoogle, u, h)
}

// failPopup settles a popup sign-in failure to Unauthenticated.
func (g *Gateway) failPopup(ctx context.Context, log logr.Logger, op string, provider identity.ProviderID, cause error, h Handlers) error {
	err := wrap(ErrPopupSignInFailed, cause)
	log.Error(err, "popup sign-in failed", "provider", provider.String())
	g.metrics.Inc(MetricSignInFailure)
	g.publish(log, UnauthenticatedSession(err))
	g.emitAudit(ctx, auditEventSignInFailure, op, provider, false, "", err, nil)
	return h.route(err)
}

// completeSignIn resolves the token for a freshly signed-in user and
// publishes it. A token failure leaves the session Failed.
func (g *Gateway) completeSignIn(ctx context.Context, log logr.Logger, op string, provider identity.ProviderID, u identity.User, h Handlers) error {
	token, err := g.resolveToken(ctx, u)
	if err != nil {
		log.Error(err, "token resolution failed", "provider", provider.String(), "uid", u.UID)
		g.metrics.Inc(MetricSignInFailure)
		g.publish(log, FailedSession(err))
		g.emitAudit(ctx, auditEventTokenFailure, op, provider, false, u.UID, err, nil)
		return h.route(err)
	}

	g.metrics.Inc(MetricSignInSuccess)
	g.publish(log, sessionForUser(u, token))
	g.emitAudit(ctx, auditEventSignInSuccess, op, provider, true, u.UID, nil, nil)
	h.success(u)
	return nil
}

/*
====================================
ANONYMOUS SESSIONS
====================================
*/

// SignInAnonymously establishes an anonymous session. Failures are logged and
// published as Unauthenticated; nothing is returned to the caller.
//
// Concurrent calls share one provider round trip.
func (g *Gateway) SignInAnonymously(ctx context.Context) {
	const op = "sign_in_anonymously"
	if err := g.ready(); err != nil {
		return
	}
	ctx, log := g.begin(ctx, op)

	_ = g.signInAnonymously(ctx, log, op)
}

// signInAnonymously publishes Loading and then the anonymous session or the
// wrapped failure, which it also returns.
func (g *Gateway) signInAnonymously(ctx context.Context, log logr.Logger, op string) error {
	g.publish(log, LoadingSession())

	// The shared call outlives any one caller's cancellation; each caller
	// stops waiting on its own ctx.
	flight := context.WithoutCancel(ctx)
	ch := g.anonymous.DoChan("anonymous", func() (any, error) {
		u, err := g.client.SignInAnonymously(flight)
		if err != nil {
			return nil, err
		}
		token, err := g.resolveToken(flight, u)
		if err != nil {
			return nil, err
		}
		return AnonymousSession(u, token), nil
	})

	var (
		v   any
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
		if res.Shared {
			log.V(1).Info("joined in-flight anonymous sign-in")
		}
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		err = wrap(ErrAnonymousSignInFailed, err)
		log.Error(err, "anonymous sign-in failed")
		g.metrics.Inc(MetricAnonymousSignInFailure)
		g.publish(log, UnauthenticatedSession(err))
		g.emitAudit(ctx, auditEventAnonymousSignInFailed, op, identity.ProviderAnonymous, false, "", err, nil)
		return err
	}

	s := v.(Session)
	g.metrics.Inc(MetricAnonymousSignInSuccess)
	g.publish(log, s)
	g.emitAudit(ctx, auditEventAnonymousSignIn, op, identity.ProviderAnonymous, true, s.UserID(), nil, nil)
	return nil
}

// SignOut signs the current user out and immediately re-establishes an
// anonymous session. On success the store ends AuthenticatedAnonymously; on
// failure it ends Unauthenticated and the error is returned, wrapping
// [ErrSignOutFailed] or [ErrAnonymousSignInFailed].
func (g *Gateway) SignOut(ctx context.Context) error {
	const op = "sign_out"
	if err := g.ready(); err != nil {
		return err
	}
	ctx, log := g.begin(ctx, op)

	uid := g.store.Current().UserID()
	g.publish(log, LoadingSession())

	if err := g.client.SignOut(ctx); err != nil {
		err = wrap(ErrSignOutFailed, err)
		log.Error(err, "sign-out failed", "uid", uid)
		g.metrics.Inc(MetricSignOutFailure)
		g.publish(log, UnauthenticatedSession(err))
		g.emitAudit(ctx, auditEventSignOutFailure, op, "", false, uid, err, nil)
		return err
	}

	g.metrics.Inc(MetricSignOut)
	g.emitAudit(ctx, auditEventSignOut, op, "", true, uid, nil, nil)

	return g.signInAnonymously(ctx, log, op)
}
