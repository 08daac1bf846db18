package goAuthState

import (
	"context"
	"testing"

	"github.com/MrEthical07/goAuthState/identity"
)

func TestSubscribeWithoutSessionSignsInAnonymouslyOnce(t *testing.T) {
	client := newFakeClient()
	g := newTestGateway(t, client)
	rec := record(g.Store())

	unsubscribe := g.SubscribeToAuthChanges(context.Background())
	defer unsubscribe()

	if n := client.anonCallCount(); n != 1 {
		t.Fatalf("expected one anonymous attempt, got %d", n)
	}
	assertStatuses(t, rec.statuses(), StatusLoading, StatusAuthenticatedAnonymously)

	// The provider reports the new anonymous user; no further attempt.
	u, _ := client.CurrentUser()
	client.emit(&u)
	if n := client.anonCallCount(); n != 1 {
		t.Fatalf("expected still one anonymous attempt, got %d", n)
	}
	if cur := g.Current(); cur.Status != StatusAuthenticatedAnonymously || cur.Token == "" {
		t.Fatalf("unexpected session %+v", cur)
	}
}

func TestSubscribeWithSignedInUserPublishesAuthenticated(t *testing.T) {
	client := newFakeClient()
	client.setCurrent(&identity.User{UID: "g-1", Email: "a@x.com"})
	g := newTestGateway(t, client)

	unsubscribe := g.SubscribeToAuthChanges(context.Background())
	defer unsubscribe()

	cur := g.Current()
	if cur.Status != StatusAuthenticated || cur.Token != "token-g-1" {
		t.Fatalf("unexpected session %+v", cur)
	}
	if client.anonCallCount() != 0 {
		t.Fatal("expected no anonymous sign-in")
	}
}

func TestSubscribeTokenFailurePublishesFailed(t *testing.T) {
	client := newFakeClient()
	client.setCurrent(&identity.User{UID: "g-1"})
	client.tokenErr = errBoom
	g := newTestGateway(t, client)

	g.SubscribeToAuthChanges(context.Background())

	if cur := g.Current(); cur.Status != StatusFailed || cur.Err == nil {
		t.Fatalf("expected Failed, got %+v", cur)
	}
}

func TestSubscribeSkipsAnonymousWhenUserAlreadyPresent(t *testing.T) {
	client := newFakeClient()
	client.setCurrent(&identity.User{UID: "g-1"})
	g := newTestGateway(t, client)

	g.SubscribeToAuthChanges(context.Background())
	// A stale "signed out" notification arrives after a user signed in.
	client.emit(nil)

	if client.anonCallCount() != 0 {
		t.Fatal("expected no anonymous sign-in while a user is present")
	}
}

func TestSubscribeIgnoresNotificationForReplacedUser(t *testing.T) {
	client := newFakeClient()
	client.setCurrent(&identity.User{UID: "g-2", Email: "b@x.com"})
	g := newTestGateway(t, client)

	g.SubscribeToAuthChanges(context.Background())
	before := g.Store().Version()

	client.emit(&identity.User{UID: "g-1", Email: "a@x.com"})

	if g.Store().Version() != before {
		t.Fatal("expected no publish for a user that is no longer current")
	}
	if cur := g.Current(); cur.UserID() != "g-2" {
		t.Fatalf("expected session for g-2, got %+v", cur)
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	client := newFakeClient()
	client.setCurrent(&identity.User{UID: "g-1"})
	g := newTestGateway(t, client)

	unsubscribe := g.SubscribeToAuthChanges(context.Background())
	if client.listenerCount() != 1 {
		t.Fatalf("expected one listener, got %d", client.listenerCount())
	}
	unsubscribe()
	unsubscribe()
	if client.listenerCount() != 0 {
		t.Fatalf("expected no listeners, got %d", client.listenerCount())
	}

	before := g.Store().Version()
	client.emit(&identity.User{UID: "other"})
	if g.Store().Version() != before {
		t.Fatal("expected no publish after unsubscribe")
	}
}

func TestSubscribeCanceledContextIgnoresNotifications(t *testing.T) {
	client := newFakeClient()
	g := newTestGateway(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	unsubscribe := g.SubscribeToAuthChanges(ctx)
	defer unsubscribe()

	if client.anonCallCount() != 0 {
		t.Fatal("expected no anonymous sign-in on a canceled context")
	}
}
