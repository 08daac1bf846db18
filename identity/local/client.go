package local

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthState/identity"
	"golang.org/x/sync/singleflight"
)

// tokenRefreshSkew is how long before expiry a cached ID token is renewed.
const tokenRefreshSkew = 5 * time.Minute

// Client is the per-agent view of a [Service]: it holds the signed-in user
// and its cached ID token, and notifies auth-state listeners. It implements
// [identity.Client] and is safe for concurrent use.
type Client struct {
	service *Service

	mu          sync.RWMutex
	current     *identity.User
	provider    identity.ProviderID
	token       string
	tokenExpiry time.Time

	refresh singleflight.Group
	events  *eventQueue
}

var _ identity.Client = (*Client)(nil)

func newClient(s *Service) *Client {
	return &Client{
		service: s,
		events:  newEventQueue(),
	}
}

// signedIn makes a the current user and announces it.
func (c *Client) signedIn(a *account, provider identity.ProviderID) (identity.User, error) {
	token, exp, err := c.service.issueToken(a, provider)
	if err != nil {
		return identity.User{}, err
	}

	user := a.user()

	c.mu.Lock()
	c.current = &user
	c.provider = provider
	c.token = token
	c.tokenExpiry = exp
	// Queued under mu so events follow the order of state changes and a
	// concurrent registration sees either the old state plus this event or
	// the new state alone.
	c.events.broadcast(cloneUser(&user))
	c.mu.Unlock()

	return user.Clone(), nil
}

// refreshed replaces the current user with a after a mutation, without an
// auth-state event. The cached token is dropped since its claims are stale.
func (c *Client) refreshed(a *account) identity.User {
	user := a.user()

	c.mu.Lock()
	if c.current != nil && c.current.UID == user.UID {
		c.current = &user
		c.token = ""
		c.tokenExpiry = time.Time{}
	}
	c.mu.Unlock()

	return user.Clone()
}

func (c *Client) SignInWithPopup(ctx context.Context, provider identity.ProviderID, opts identity.PopupOptions) (identity.User, error) {
	a, err := c.service.signInFederated(ctx, provider, opts)
	if err != nil {
		return identity.User{}, err
	}
	return c.signedIn(a, provider)
}

func (c *Client) SignInWithEmailAndPassword(ctx context.Context, email, password string) (identity.User, error) {
	a, err := c.service.signInWithPassword(ctx, email, password)
	if err != nil {
		return identity.User{}, err
	}
	return c.signedIn(a, identity.ProviderPassword)
}

func (c *Client) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (identity.User, error) {
	a, err := c.service.createWithPassword(ctx, email, password)
	if err != nil {
		return identity.User{}, err
	}
	return c.signedIn(a, identity.ProviderPassword)
}

// SignInAnonymously creates an anonymous account and signs it in. When an
// anonymous user is already signed in it is returned unchanged.
func (c *Client) SignInAnonymously(ctx context.Context) (identity.User, error) {
	c.mu.RLock()
	if c.current != nil && c.current.IsAnonymous {
		user := c.current.Clone()
		c.mu.RUnlock()
		return user, nil
	}
	c.mu.RUnlock()

	a, err := c.service.createAnonymous(ctx)
	if err != nil {
		return identity.User{}, err
	}
	return c.signedIn(a, identity.ProviderAnonymous)
}

// SignOut forgets the current user. Listeners are notified only when a user
// was signed in.
func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	had := c.current != nil
	c.current = nil
	c.provider = ""
	c.token = ""
	c.tokenExpiry = time.Time{}
	if had {
		c.events.broadcast(nil)
	}
	c.mu.Unlock()

	return nil
}

func (c *Client) CurrentUser() (identity.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return identity.User{}, false
	}
	return c.current.Clone(), true
}

// IDToken returns the cached token of the current user while it has more
// than a few minutes left, and signs a new one otherwise. Concurrent
// refreshes for one user share a single signing. A user other than the
// current one gets [identity.ErrNoCurrentUser].
func (c *Client) IDToken(ctx context.Context, user identity.User, forceRefresh bool) (string, error) {
	if user.UID == "" {
		return "", identity.ErrNoCurrentUser
	}

	c.mu.RLock()
	if c.current == nil || c.current.UID != user.UID {
		c.mu.RUnlock()
		return "", identity.ErrNoCurrentUser
	}
	if !forceRefresh && c.token != "" && c.service.now().Add(c.skew()).Before(c.tokenExpiry) {
		token := c.token
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.refresh.Do(user.UID, func() (any, error) {
		a, err := c.service.accounts.get(ctx, user.UID)
		if err != nil {
			return "", err
		}

		c.mu.RLock()
		provider := c.provider
		isCurrent := c.current != nil && c.current.UID == a.UID
		c.mu.RUnlock()
		if !isCurrent {
			return "", identity.ErrNoCurrentUser
		}

		token, exp, err := c.service.issueToken(a, provider)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.current == nil || c.current.UID != a.UID {
			return "", identity.ErrNoCurrentUser
		}
		c.token = token
		c.tokenExpiry = exp
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) skew() time.Duration {
	if half := c.service.issuer.TTL() / 2; half < tokenRefreshSkew {
		return half
	}
	return tokenRefreshSkew
}

func (c *Client) FetchSignInMethodsForEmail(ctx context.Context, email string) ([]identity.ProviderID, error) {
	return c.service.signInMethods(ctx, email)
}

func (c *Client) SendPasswordResetEmail(ctx context.Context, email string, settings identity.ActionSettings) error {
	return c.service.sendPasswordReset(ctx, email, settings)
}

func (c *Client) SendEmailVerification(ctx context.Context, user identity.User, settings identity.ActionSettings) error {
	if user.UID == "" {
		return identity.ErrNoCurrentUser
	}
	return c.service.sendVerification(ctx, user.UID, settings)
}

func (c *Client) UpdateEmail(ctx context.Context, user identity.User, email string) (identity.User, error) {
	if user.UID == "" {
		return identity.User{}, identity.ErrNoCurrentUser
	}
	a, err := c.service.updateEmail(ctx, user.UID, email)
	if err != nil {
		return identity.User{}, err
	}
	return c.refreshed(a), nil
}

func (c *Client) UpdateProfile(ctx context.Context, user identity.User, profile identity.Profile) (identity.User, error) {
	if user.UID == "" {
		return identity.User{}, identity.ErrNoCurrentUser
	}
	a, err := c.service.updateProfile(ctx, user.UID, profile)
	if err != nil {
		return identity.User{}, err
	}
	return c.refreshed(a), nil
}

func (c *Client) LinkWithCredential(ctx context.Context, user identity.User, credential identity.Credential) (identity.User, error) {
	if user.UID == "" {
		return identity.User{}, identity.ErrNoCurrentUser
	}
	a, err := c.service.linkCredential(ctx, user.UID, credential)
	if err != nil {
		return identity.User{}, err
	}
	return c.refreshed(a), nil
}

// OnAuthStateChanged registers listener. Events are delivered on a single
// goroutine owned by the client; the first one carries the state at
// registration time.
func (c *Client) OnAuthStateChanged(listener identity.AuthStateListener) func() {
	// Registering under the read lock orders the initial event against
	// concurrent sign-ins.
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.events.add(listener, cloneUser(c.current))
}

// Flush blocks until every pending auth-state event has been delivered,
// including events listeners queue while handling them. Calling it from a
// listener deadlocks.
func (c *Client) Flush() {
	c.events.flush()
}

// Listeners returns the number of registered auth-state listeners.
func (c *Client) Listeners() int {
	return c.events.count()
}

// Close delivers pending events and stops the event goroutine. Listeners
// registered afterwards are never called.
func (c *Client) Close() {
	c.events.close()
}
