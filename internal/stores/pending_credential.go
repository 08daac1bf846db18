package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrPendingCredentialNotFound = errors.New("pending credential not found")
)

// PendingCredential is a federated identity that could not sign in because
// its email belongs to another account. It waits to be linked.
type PendingCredential struct {
	Provider string `json:"provider"`
	Subject  string `json:"subject"`
	Email    string `json:"email"`
}

// PendingCredentialStore keeps pending credentials for a short TTL.
type PendingCredentialStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewPendingCredentialStore returns a store writing keys under prefix.
func NewPendingCredentialStore(redisClient redis.UniversalClient, prefix string) *PendingCredentialStore {
	if prefix == "" {
		prefix = "gas"
	}
	return &PendingCredentialStore{redis: redisClient, prefix: prefix}
}

func (s *PendingCredentialStore) key(id string) string {
	return s.prefix + ":pending:" + id
}

// Save stores cred under id for ttl.
func (s *PendingCredentialStore) Save(ctx context.Context, id string, cred PendingCredential, ttl time.Duration) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(id), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrActionCodeRedisUnavailable, err)
	}
	return nil
}

// Take returns and deletes the credential stored under id.
func (s *PendingCredentialStore) Take(ctx context.Context, id string) (PendingCredential, error) {
	data, err := s.redis.GetDel(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return PendingCredential{}, ErrPendingCredentialNotFound
		}
		return PendingCredential{}, fmt.Errorf("%w: %v", ErrActionCodeRedisUnavailable, err)
	}

	var cred PendingCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return PendingCredential{}, fmt.Errorf("%w: %v", ErrPendingCredentialNotFound, err)
	}
	return cred, nil
}
