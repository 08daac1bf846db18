package goAuthState

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/goAuthState/identity"
	"github.com/go-logr/logr"
)

// fakeClient is a scriptable identity.Client. Fields ending in Err make the
// matching call fail.
type fakeClient struct {
	mu sync.Mutex

	current *identity.User

	popupUsers map[identity.ProviderID]identity.User
	popupErrs  map[identity.ProviderID]error
	popupCalls []popupCall

	passwordUser identity.User
	methods      map[string][]identity.ProviderID

	signInErr      error
	createErr      error
	anonErr        error
	signOutErr     error
	tokenErr       error
	methodsErr     error
	verifyErr      error
	resetErr       error
	profileErr     error
	updateEmailErr error
	linkErr        error

	anonCalls    int
	createCalls  int
	verifyCalls  int
	profileCalls int
	linkCalls    int
	resetTo      []string
	linked       []identity.Credential
	lastSettings identity.ActionSettings

	// anonGate, when set, blocks SignInAnonymously until it is closed.
	anonGate chan struct{}

	listeners map[int]identity.AuthStateListener
	nextID    int
}

type popupCall struct {
	provider identity.ProviderID
	opts     identity.PopupOptions
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		popupUsers: map[identity.ProviderID]identity.User{},
		popupErrs:  map[identity.ProviderID]error{},
		methods:    map[string][]identity.ProviderID{},
		listeners:  map[int]identity.AuthStateListener{},
	}
}

func (f *fakeClient) setCurrent(u *identity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u == nil {
		f.current = nil
		return
	}
	c := u.Clone()
	f.current = &c
}

// emit notifies every listener with u.
func (f *fakeClient) emit(u *identity.User) {
	f.mu.Lock()
	ls := make([]identity.AuthStateListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.mu.Unlock()

	for _, l := range ls {
		l(u)
	}
}

func (f *fakeClient) SignInWithPopup(_ context.Context, provider identity.ProviderID, opts identity.PopupOptions) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.popupCalls = append(f.popupCalls, popupCall{provider: provider, opts: opts})
	if err := f.popupErrs[provider]; err != nil {
		return identity.User{}, err
	}
	u, ok := f.popupUsers[provider]
	if !ok {
		return identity.User{}, identity.ErrUnsupportedProvider
	}
	c := u.Clone()
	f.current = &c
	return u.Clone(), nil
}

func (f *fakeClient) SignInWithEmailAndPassword(_ context.Context, email, _ string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.signInErr != nil {
		return identity.User{}, f.signInErr
	}
	u := f.passwordUser.Clone()
	u.Email = email
	f.current = &u
	return u.Clone(), nil
}

func (f *fakeClient) CreateUserWithEmailAndPassword(_ context.Context, email, _ string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createErr != nil {
		return identity.User{}, f.createErr
	}
	u := identity.User{
		UID:         "new-user",
		Email:       email,
		ProviderIDs: []identity.ProviderID{identity.ProviderPassword},
	}
	f.current = &u
	f.methods[email] = []identity.ProviderID{identity.ProviderPassword}
	return u.Clone(), nil
}

func (f *fakeClient) SignInAnonymously(ctx context.Context) (identity.User, error) {
	f.mu.Lock()
	gate := f.anonGate
	f.anonCalls++
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err := ctx.Err(); err != nil {
		return identity.User{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.anonErr != nil {
		return identity.User{}, f.anonErr
	}
	u := identity.User{UID: "anon-user", IsAnonymous: true}
	f.current = &u
	return u.Clone(), nil
}

func (f *fakeClient) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.current = nil
	return nil
}

func (f *fakeClient) CurrentUser() (identity.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current == nil {
		return identity.User{}, false
	}
	return f.current.Clone(), true
}

func (f *fakeClient) IDToken(_ context.Context, u identity.User, _ bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "token-" + u.UID, nil
}

func (f *fakeClient) FetchSignInMethodsForEmail(_ context.Context, email string) ([]identity.ProviderID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.methodsErr != nil {
		return nil, f.methodsErr
	}
	return append([]identity.ProviderID(nil), f.methods[email]...), nil
}

func (f *fakeClient) SendPasswordResetEmail(_ context.Context, email string, settings identity.ActionSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resetErr != nil {
		return f.resetErr
	}
	f.resetTo = append(f.resetTo, email)
	f.lastSettings = settings
	return nil
}

func (f *fakeClient) SendEmailVerification(_ context.Context, _ identity.User, settings identity.ActionSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.verifyCalls++
	if f.verifyErr != nil {
		return f.verifyErr
	}
	f.lastSettings = settings
	return nil
}

func (f *fakeClient) UpdateEmail(_ context.Context, u identity.User, email string) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateEmailErr != nil {
		return identity.User{}, f.updateEmailErr
	}
	u.Email = email
	c := u.Clone()
	f.current = &c
	return u, nil
}

func (f *fakeClient) UpdateProfile(_ context.Context, u identity.User, p identity.Profile) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.profileCalls++
	if f.profileErr != nil {
		return identity.User{}, f.profileErr
	}
	u.DisplayName = p.DisplayName
	c := u.Clone()
	f.current = &c
	return u, nil
}

func (f *fakeClient) LinkWithCredential(_ context.Context, u identity.User, cred identity.Credential) (identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.linkCalls++
	if f.linkErr != nil {
		return identity.User{}, f.linkErr
	}
	f.linked = append(f.linked, cred)
	u.ProviderIDs = append(u.ProviderIDs, cred.ProviderID)
	c := u.Clone()
	f.current = &c
	return u, nil
}

// OnAuthStateChanged delivers the current state synchronously before
// returning.
func (f *fakeClient) OnAuthStateChanged(listener identity.AuthStateListener) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = listener
	var cur *identity.User
	if f.current != nil {
		c := f.current.Clone()
		cur = &c
	}
	f.mu.Unlock()

	listener(cur)

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

func (f *fakeClient) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeClient) anonCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.anonCalls
}

/*
====================================
TEST HELPERS
====================================
*/

var errBoom = errors.New("boom")

func testProviderConfig() ProviderConfig {
	return ProviderConfig{
		APIKey:     "test-api-key",
		AuthDomain: "demo.example.com",
		ProjectID:  "demo-project",
		AppID:      "1:1234:web:abcd",
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Provider = testProviderConfig()
	return cfg
}

func newTestGateway(t *testing.T, client identity.Client) *Gateway {
	t.Helper()
	return newTestGatewayWithConfig(t, client, testConfig())
}

func newTestGatewayWithConfig(t *testing.T, client identity.Client, cfg Config) *Gateway {
	t.Helper()

	g, err := New().
		WithConfig(cfg).
		WithClient(client).
		WithLogger(logr.Discard()).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(g.Close)
	return g
}

// recorder collects every session published to a store.
type recorder struct {
	mu       sync.Mutex
	sessions []Session
}

func record(s *Store) *recorder {
	r := &recorder{}
	s.Subscribe(func(sess Session) {
		r.mu.Lock()
		r.sessions = append(r.sessions, sess)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.sessions))
	for i, s := range r.sessions {
		out[i] = s.Status
	}
	return out
}

func assertStatuses(t *testing.T, got []Status, want ...Status) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected statuses %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected statuses %v, got %v", want, got)
		}
	}
}
