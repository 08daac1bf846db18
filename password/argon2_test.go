package password

import (
	"errors"
	"strings"
	"testing"
)

// fastConfig keeps the suite quick while staying above the floor values.
func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher(t, fastConfig())

	encoded, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}

	ok, err := h.Verify("correct horse", encoded)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}

	ok, err = h.Verify("wrong horse", encoded)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got %v %v", ok, err)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := newHasher(t, fastConfig())

	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatal("expected different encodings for the same password")
	}
}

func TestHashLengthBounds(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxLength = 16
	h := newHasher(t, cfg)

	if _, err := h.Hash("12345"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
	if _, err := h.Hash("123456"); err != nil {
		t.Fatalf("expected six bytes accepted, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", 17)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	if _, err := h.Verify(strings.Repeat("x", 17), "$argon2id$"); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong on verify, got %v", err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	h := newHasher(t, fastConfig())

	tests := []string{
		"",
		"plain",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2hvcnQ$aGFzaA",
	}
	for _, encoded := range tests {
		if _, err := h.Verify("password", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("Verify(%q): expected ErrMalformedHash, got %v", encoded, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := newHasher(t, fastConfig())
	encoded, err := weak.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if again, _ := weak.NeedsRehash(encoded); again {
		t.Fatal("same config must not need rehash")
	}

	strongCfg := fastConfig()
	strongCfg.Time = 2
	strong := newHasher(t, strongCfg)
	if again, _ := strong.NeedsRehash(encoded); !again {
		t.Fatal("stronger config must need rehash")
	}

	ok, err := strong.Verify("correct horse", encoded)
	if err != nil || !ok {
		t.Fatalf("older hash must still verify, got %v %v", ok, err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	tests := []func(*Config){
		func(c *Config) { c.Memory = 1024 },
		func(c *Config) { c.Time = 0 },
		func(c *Config) { c.Parallelism = 0 },
		func(c *Config) { c.SaltLength = 8 },
		func(c *Config) { c.KeyLength = 8 },
		func(c *Config) { c.MinLength = 10; c.MaxLength = 5 },
	}
	for i, mutate := range tests {
		cfg := fastConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}

	if _, err := NewArgon2(DefaultConfig()); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}
