package jwt

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the ID-token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over Ed25519.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

// Config controls ID-token issuance.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	// PrivateKey is a raw or PEM Ed25519 private key, or the HMAC secret.
	PrivateKey []byte
	// Issuer is written to "iss", typically https://<auth domain>.
	Issuer string
	// Audience is written to "aud", typically the project ID.
	Audience string
	KeyID    string
}

// Identity is the account data embedded in an ID token.
type Identity struct {
	UID            string
	Email          string
	EmailVerified  bool
	Name           string
	Anonymous      bool
	Providers      []string
	SignInProvider string
}

// IDClaims is the claim set of an issued ID token.
type IDClaims struct {
	Email          string   `json:"email,omitempty"`
	EmailVerified  bool     `json:"email_verified,omitempty"`
	Name           string   `json:"name,omitempty"`
	Anonymous      bool     `json:"anonymous,omitempty"`
	Providers      []string `json:"providers,omitempty"`
	SignInProvider string   `json:"sign_in_provider,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs ID tokens. Tokens are opaque to their consumers; this package
// does not verify them.
type Issuer struct {
	config  Config
	method  jwt.SigningMethod
	signKey any
	now     func() time.Time
}

// NewIssuer validates cfg and loads the signing key.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	i := &Issuer{config: cfg, now: time.Now}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
		i.method = jwt.SigningMethodHS256
		i.signKey = append([]byte(nil), cfg.PrivateKey...)
	case MethodEd25519:
		key, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		i.method = jwt.SigningMethodEdDSA
		i.signKey = key
	default:
		return nil, errors.New("unsupported signing method")
	}

	return i, nil
}

// Issue returns a signed ID token for id and its expiry.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	if id.UID == "" {
		return "", time.Time{}, errors.New("identity uid is required")
	}

	now := i.now()
	exp := now.Add(i.config.TTL)

	claims := IDClaims{
		Email:          id.Email,
		EmailVerified:  id.EmailVerified,
		Name:           id.Name,
		Anonymous:      id.Anonymous,
		Providers:      id.Providers,
		SignInProvider: id.SignInProvider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if i.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.config.Audience}
	}

	token := jwt.NewWithClaims(i.method, claims)
	if i.config.KeyID != "" {
		token.Header["kid"] = i.config.KeyID
	}

	signed, err := token.SignedString(i.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.config.TTL
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	if len(key) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}
