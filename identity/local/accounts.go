package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthState/identity"
	"github.com/redis/go-redis/v9"
)

// account is the persisted form of a user.
type account struct {
	UID           string                `json:"uid"`
	Email         string                `json:"email,omitempty"`
	DisplayName   string                `json:"display_name,omitempty"`
	EmailVerified bool                  `json:"email_verified,omitempty"`
	Anonymous     bool                  `json:"anonymous,omitempty"`
	PasswordHash  string                `json:"password_hash,omitempty"`
	Providers     []identity.ProviderID `json:"providers,omitempty"`
	// Subjects maps a linked federated provider to the provider's user ID.
	Subjects  map[identity.ProviderID]string `json:"subjects,omitempty"`
	CreatedAt time.Time                      `json:"created_at"`
}

func (a *account) user() identity.User {
	return identity.User{
		UID:           a.UID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		EmailVerified: a.EmailVerified,
		IsAnonymous:   a.Anonymous,
		ProviderIDs:   append([]identity.ProviderID(nil), a.Providers...),
		CreatedAt:     a.CreatedAt,
	}
}

func (a *account) addProvider(p identity.ProviderID) {
	for _, existing := range a.Providers {
		if existing == p {
			return
		}
	}
	a.Providers = append(a.Providers, p)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// accountStore keeps accounts as JSON documents with two secondary indexes:
// email → uid and (provider, subject) → uid.
type accountStore struct {
	redis  redis.UniversalClient
	prefix string
}

func (s *accountStore) accountKey(uid string) string {
	return s.prefix + ":acct:" + uid
}

func (s *accountStore) emailKey(email string) string {
	return s.prefix + ":email:" + normalizeEmail(email)
}

func (s *accountStore) federatedKey(provider identity.ProviderID, subject string) string {
	return s.prefix + ":fed:" + string(provider) + ":" + subject
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", identity.ErrBackendUnavailable, err)
}

func (s *accountStore) get(ctx context.Context, uid string) (*account, error) {
	data, err := s.redis.Get(ctx, s.accountKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, identity.ErrUserNotFound
		}
		return nil, unavailable(err)
	}

	var a account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, unavailable(err)
	}
	return &a, nil
}

func (s *accountStore) lookup(ctx context.Context, key string) (*account, error) {
	uid, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, identity.ErrUserNotFound
		}
		return nil, unavailable(err)
	}
	return s.get(ctx, uid)
}

func (s *accountStore) byEmail(ctx context.Context, email string) (*account, error) {
	return s.lookup(ctx, s.emailKey(email))
}

func (s *accountStore) byFederated(ctx context.Context, provider identity.ProviderID, subject string) (*account, error) {
	return s.lookup(ctx, s.federatedKey(provider, subject))
}

func (s *accountStore) put(ctx context.Context, a *account) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.accountKey(a.UID), data, 0).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// claim points key at uid unless another account already owns it. It reports
// the owning uid when the claim fails.
func (s *accountStore) claim(ctx context.Context, key, uid string) (bool, string, error) {
	ok, err := s.redis.SetNX(ctx, key, uid, 0).Result()
	if err != nil {
		return false, "", unavailable(err)
	}
	if ok {
		return true, uid, nil
	}

	owner, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, "", nil
		}
		return false, "", unavailable(err)
	}
	return owner == uid, owner, nil
}

// create stores a new account after claiming its email and federated
// subjects. A lost email claim returns identity.ErrEmailAlreadyInUse.
func (s *accountStore) create(ctx context.Context, a *account) error {
	if a.Email != "" {
		ok, _, err := s.claim(ctx, s.emailKey(a.Email), a.UID)
		if err != nil {
			return err
		}
		if !ok {
			return identity.ErrEmailAlreadyInUse
		}
	}

	for provider, subject := range a.Subjects {
		ok, _, err := s.claim(ctx, s.federatedKey(provider, subject), a.UID)
		if err != nil {
			return err
		}
		if !ok {
			s.release(ctx, a)
			return identity.ErrCredentialAlreadyInUse
		}
	}

	if err := s.put(ctx, a); err != nil {
		s.release(ctx, a)
		return err
	}
	return nil
}

// release drops the index entries of an account whose creation failed.
func (s *accountStore) release(ctx context.Context, a *account) {
	keys := make([]string, 0, len(a.Subjects)+1)
	if a.Email != "" {
		keys = append(keys, s.emailKey(a.Email))
	}
	for provider, subject := range a.Subjects {
		keys = append(keys, s.federatedKey(provider, subject))
	}
	for _, k := range keys {
		owner, err := s.redis.Get(ctx, k).Result()
		if err == nil && owner == a.UID {
			_ = s.redis.Del(ctx, k).Err()
		}
	}
}

// changeEmail moves the email index of a to email and saves a.
func (s *accountStore) changeEmail(ctx context.Context, a *account, email string) error {
	if normalizeEmail(a.Email) == normalizeEmail(email) {
		a.Email = email
		return s.put(ctx, a)
	}

	ok, _, err := s.claim(ctx, s.emailKey(email), a.UID)
	if err != nil {
		return err
	}
	if !ok {
		return identity.ErrEmailAlreadyInUse
	}

	oldKey := ""
	if a.Email != "" {
		oldKey = s.emailKey(a.Email)
	}
	a.Email = email
	a.EmailVerified = false

	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accountKey(a.UID), data, 0)
		if oldKey != "" {
			pipe.Del(ctx, oldKey)
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// link attaches (provider, subject) to a and saves it.
func (s *accountStore) link(ctx context.Context, a *account, provider identity.ProviderID, subject string) error {
	ok, owner, err := s.claim(ctx, s.federatedKey(provider, subject), a.UID)
	if err != nil {
		return err
	}
	if !ok && owner != a.UID {
		return identity.ErrCredentialAlreadyInUse
	}

	if a.Subjects == nil {
		a.Subjects = map[identity.ProviderID]string{}
	}
	a.Subjects[provider] = subject
	a.addProvider(provider)
	return s.put(ctx, a)
}
