package local

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthState/jwt"
	"github.com/MrEthical07/goAuthState/password"
)

// Config controls a [Service].
type Config struct {
	// ProjectID is written to the ID-token audience.
	ProjectID string
	// AuthDomain is the token issuer host and the default action link host.
	AuthDomain string
	// APIKey, when set, must be presented by [Service.NewClient].
	APIKey string
	// RedisPrefix namespaces every key. Default "gas".
	RedisPrefix string

	TokenTTL      time.Duration
	SigningMethod jwt.SigningMethod
	SigningKey    []byte

	Password password.Config

	ActionCodeTTL         time.Duration
	MaxActionCodeAttempts int

	PendingCredentialTTL time.Duration

	// SignInMaxAttempts failed password sign-ins per email are tolerated
	// within SignInWindow. Zero disables the throttle.
	SignInMaxAttempts int
	SignInWindow      time.Duration
}

// DefaultConfig returns a config for projectID on authDomain. SigningKey
// must still be supplied.
func DefaultConfig(projectID, authDomain string) Config {
	return Config{
		ProjectID:             projectID,
		AuthDomain:            authDomain,
		RedisPrefix:           "gas",
		TokenTTL:              time.Hour,
		SigningMethod:         jwt.MethodEd25519,
		Password:              password.DefaultConfig(),
		ActionCodeTTL:         time.Hour,
		MaxActionCodeAttempts: 5,
		PendingCredentialTTL:  10 * time.Minute,
		SignInMaxAttempts:     5,
		SignInWindow:          15 * time.Minute,
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return errors.New("local ProjectID is required")
	}
	if strings.TrimSpace(c.AuthDomain) == "" || strings.ContainsAny(c.AuthDomain, "/ ") {
		return errors.New("local AuthDomain must be a bare host name")
	}
	if c.RedisPrefix == "" {
		return errors.New("local RedisPrefix must not be empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("local TokenTTL must be > 0")
	}
	if len(c.SigningKey) == 0 {
		return errors.New("local SigningKey is required")
	}
	if c.ActionCodeTTL <= 0 {
		return errors.New("local ActionCodeTTL must be > 0")
	}
	if c.MaxActionCodeAttempts <= 0 {
		return errors.New("local MaxActionCodeAttempts must be > 0")
	}
	if c.PendingCredentialTTL <= 0 {
		return errors.New("local PendingCredentialTTL must be > 0")
	}
	if c.SignInMaxAttempts < 0 {
		return errors.New("local SignInMaxAttempts must be >= 0")
	}
	if c.SignInMaxAttempts > 0 && c.SignInWindow <= 0 {
		return errors.New("local SignInWindow must be > 0 when SignInMaxAttempts is set")
	}
	return nil
}

func (c *Config) issuerURL() string {
	return "https://" + c.AuthDomain
}

func (c *Config) defaultActionURL() string {
	return "https://" + c.AuthDomain + "/__/auth/action"
}
