package identity

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAccountExistsErrorMatching(t *testing.T) {
	err := fmt.Errorf("popup: %w", &AccountExistsError{
		Email:      "a@x.com",
		Credential: Credential{ProviderID: ProviderFacebook, Email: "a@x.com", Secret: "p1"},
	})

	if !errors.Is(err, ErrAccountExistsWithDifferentCredential) {
		t.Fatal("expected sentinel match")
	}
	got, ok := AsAccountExists(err)
	if !ok {
		t.Fatal("expected AsAccountExists to find the error")
	}
	if got.Credential.Secret != "p1" {
		t.Fatalf("unexpected credential %+v", got.Credential)
	}
	if !strings.Contains(err.Error(), "facebook.com") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if _, ok := AsAccountExists(ErrWrongPassword); ok {
		t.Fatal("unrelated error matched")
	}
}

func TestUserClone(t *testing.T) {
	u := User{UID: "u1", ProviderIDs: []ProviderID{ProviderGoogle}}
	c := u.Clone()
	c.ProviderIDs[0] = ProviderFacebook

	if u.ProviderIDs[0] != ProviderGoogle {
		t.Fatal("clone shares provider slice")
	}
	if !u.HasProvider(ProviderGoogle) || u.HasProvider(ProviderPassword) {
		t.Fatal("HasProvider mismatch")
	}
}
