package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKey(t *testing.T) ed25519.PrivateKey {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return priv
}

func TestIssueEd25519Claims(t *testing.T) {
	priv := newEdKey(t)
	iss, err := NewIssuer(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "https://demo.example.com",
		Audience:      "demo-project",
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	token, exp, err := iss.Issue(Identity{
		UID:            "u1",
		Email:          "a@x.com",
		Providers:      []string{"google.com"},
		SignInProvider: "google.com",
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims := &IDClaims{}
	parsed, err := gjwt.ParseWithClaims(token, claims, func(*gjwt.Token) (any, error) {
		return priv.Public(), nil
	}, gjwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil || !parsed.Valid {
		t.Fatalf("expected verifiable token: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "a@x.com" || claims.SignInProvider != "google.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Issuer != "https://demo.example.com" || len(claims.Audience) != 1 || claims.Audience[0] != "demo-project" {
		t.Fatalf("unexpected registered claims %+v", claims.RegisteredClaims)
	}
	if parsed.Header["kid"] != "k1" {
		t.Fatalf("expected kid header, got %v", parsed.Header["kid"])
	}
}

func TestIssueHS256Anonymous(t *testing.T) {
	iss, err := NewIssuer(Config{
		TTL:           time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
	})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	token, _, err := iss.Issue(Identity{UID: "anon", Anonymous: true, SignInProvider: "anonymous"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims := &IDClaims{}
	if _, _, err := gjwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if !claims.Anonymous || claims.Email != "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestNewIssuerRejectsBadConfig(t *testing.T) {
	tests := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: make([]byte, 32)},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: []byte("not-a-key")},
		{TTL: time.Minute, SigningMethod: "rs256", PrivateKey: make([]byte, 32)},
	}
	for i, cfg := range tests {
		if _, err := NewIssuer(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestIssueRequiresUID(t *testing.T) {
	iss, err := NewIssuer(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: newEdKey(t).Seed()})
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	if _, _, err := iss.Issue(Identity{}); err == nil {
		t.Fatal("expected error for empty uid")
	}
}
