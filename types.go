package goAuthState

import (
	"io"

	"github.com/MrEthical07/goAuthState/identity"
	internalaudit "github.com/MrEthical07/goAuthState/internal/audit"
)

// Status is the authentication status carried by a [Session].
type Status uint8

const (
	// StatusUnauthenticated is the initial status and the status after a failed sign-in.
	StatusUnauthenticated Status = iota
	// StatusLoading is published while an operation is in flight.
	StatusLoading
	// StatusAuthenticated means an identified user is signed in.
	StatusAuthenticated
	// StatusAuthenticatedAnonymously means an anonymous account is signed in.
	StatusAuthenticatedAnonymously
	// StatusFailed means a user is signed in but its credential could not be resolved.
	StatusFailed
)

var statusNames = [...]string{
	StatusUnauthenticated:          "UNAUTHENTICATED",
	StatusLoading:                  "AUTHENTICATION_LOADING",
	StatusAuthenticated:            "AUTHENTICATED",
	StatusAuthenticatedAnonymously: "AUTHENTICATED_ANONYMOUSLY",
	StatusFailed:                   "AUTHENTICATION_FAILED",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "UNKNOWN"
}

// Session is the single current authentication state. Sessions are values:
// every publish replaces the previous one wholesale.
type Session struct {
	Status Status
	// User is set for StatusAuthenticated and StatusAuthenticatedAnonymously.
	User *identity.User
	// Token is the opaque bearer ID token for User.
	Token string
	// Err is set for StatusFailed and for StatusUnauthenticated after a failure.
	Err error
}

// LoadingSession returns the in-flight session.
func LoadingSession() Session {
	return Session{Status: StatusLoading}
}

// AuthenticatedSession returns a signed-in session for u.
func AuthenticatedSession(u identity.User, token string) Session {
	clone := u.Clone()
	return Session{Status: StatusAuthenticated, User: &clone, Token: token}
}

// AnonymousSession returns an anonymous signed-in session for u.
func AnonymousSession(u identity.User, token string) Session {
	clone := u.Clone()
	return Session{Status: StatusAuthenticatedAnonymously, User: &clone, Token: token}
}

// UnauthenticatedSession returns a signed-out session, optionally carrying the
// failure that caused it.
func UnauthenticatedSession(err error) Session {
	return Session{Status: StatusUnauthenticated, Err: err}
}

// FailedSession returns a failed session.
func FailedSession(err error) Session {
	return Session{Status: StatusFailed, Err: err}
}

// sessionForUser picks Authenticated or AuthenticatedAnonymously by the
// user's anonymity flag.
func sessionForUser(u identity.User, token string) Session {
	if u.IsAnonymous {
		return AnonymousSession(u, token)
	}
	return AuthenticatedSession(u, token)
}

// IsSignedIn reports whether an identified user is signed in. Anonymous,
// loading, failed and signed-out sessions report false. This is stricter than
// a "not signed out and not anonymous" status check, which would also count
// Loading and Failed sessions that carry no user.
func (s Session) IsSignedIn() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// UserID returns the signed-in user's UID, or "".
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.UID
}

// Handlers carries the optional callbacks of a [Gateway] operation.
//
// When OnError is set, a failure is delivered to it and the operation returns
// nil; otherwise the operation returns the failure.
type Handlers struct {
	OnSuccess func(user identity.User)
	OnError   func(err error)
}

func (h Handlers) success(u identity.User) {
	if h.OnSuccess != nil {
		h.OnSuccess(u.Clone())
	}
}

// route delivers err to OnError when set and returns what the caller should see.
func (h Handlers) route(err error) error {
	if err == nil {
		return nil
	}
	if h.OnError != nil {
		h.OnError(err)
		return nil
	}
	return err
}

// AuditEvent is a structured audit record emitted by the gateway.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the gateway's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] writing one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
