package local

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/goAuthState/identity"
	"github.com/MrEthical07/goAuthState/internal/rate"
	"github.com/MrEthical07/goAuthState/internal/stores"
	"github.com/MrEthical07/goAuthState/jwt"
	"github.com/MrEthical07/goAuthState/password"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

// Service is a Redis-backed identity provider. It owns accounts, passwords,
// federated links and email action codes. Each user agent talks to it
// through its own [Client].
type Service struct {
	config Config
	log    logr.Logger

	accounts *accountStore
	hasher   *password.Argon2
	issuer   *jwt.Issuer
	codes    *stores.ActionCodeStore
	pending  *stores.PendingCredentialStore
	throttle *rate.Limiter

	mailer     Mailer
	authorizer Authorizer

	now func() time.Time
}

// Option customizes a [Service].
type Option func(*Service)

// WithMailer sets the email transport. The default logs each message.
func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

// WithAuthorizer sets the popup authorizer. The default closes every popup.
func WithAuthorizer(a Authorizer) Option {
	return func(s *Service) { s.authorizer = a }
}

// WithLogger sets the service logger.
func WithLogger(l logr.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService validates cfg and returns a service storing its state in rdb.
func NewService(rdb redis.UniversalClient, cfg Config, opts ...Option) (*Service, error) {
	if rdb == nil {
		return nil, errors.New("local: redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewArgon2(cfg.Password)
	if err != nil {
		return nil, err
	}

	issuer, err := jwt.NewIssuer(jwt.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: cfg.SigningMethod,
		PrivateKey:    cfg.SigningKey,
		Issuer:        cfg.issuerURL(),
		Audience:      cfg.ProjectID,
	})
	if err != nil {
		return nil, err
	}

	s := &Service{
		config:   cfg,
		log:      logr.Discard(),
		accounts: &accountStore{redis: rdb, prefix: cfg.RedisPrefix},
		hasher:   hasher,
		issuer:   issuer,
		codes:    stores.NewActionCodeStore(rdb, cfg.RedisPrefix),
		pending:  stores.NewPendingCredentialStore(rdb, cfg.RedisPrefix),
		throttle: rate.New(rdb, rate.Config{
			Prefix:      cfg.RedisPrefix,
			MaxAttempts: cfg.SignInMaxAttempts,
			Window:      cfg.SignInWindow,
		}),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mailer == nil {
		s.mailer = LogMailer{Log: s.log.WithName("mailer")}
	}
	if s.authorizer == nil {
		s.authorizer = NewStaticAuthorizer()
	}

	return s, nil
}

// NewClient returns a client for one user agent. apiKey must match
// Config.APIKey when one is configured.
func (s *Service) NewClient(apiKey string) (*Client, error) {
	if s.config.APIKey != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.config.APIKey)) != 1 {
		return nil, identity.ErrInvalidAPIKey
	}
	return newClient(s), nil
}

// GetUser returns the stored account uid.
func (s *Service) GetUser(ctx context.Context, uid string) (identity.User, error) {
	a, err := s.accounts.get(ctx, uid)
	if err != nil {
		return identity.User{}, err
	}
	return a.user(), nil
}

// issueToken signs an ID token for a. signInProvider is the method used for
// the current session.
func (s *Service) issueToken(a *account, signInProvider identity.ProviderID) (string, time.Time, error) {
	providers := make([]string, 0, len(a.Providers))
	for _, p := range a.Providers {
		providers = append(providers, string(p))
	}
	if a.Anonymous {
		signInProvider = identity.ProviderAnonymous
	}

	return s.issuer.Issue(jwt.Identity{
		UID:            a.UID,
		Email:          a.Email,
		EmailVerified:  a.EmailVerified,
		Name:           a.DisplayName,
		Anonymous:      a.Anonymous,
		Providers:      providers,
		SignInProvider: string(signInProvider),
	})
}

// backendErr maps storage failures from the internal stores onto
// identity.ErrBackendUnavailable.
func backendErr(err error) error {
	switch {
	case errors.Is(err, stores.ErrActionCodeRedisUnavailable),
		errors.Is(err, rate.ErrRedisUnavailable):
		return unavailable(err)
	default:
		return err
	}
}
