package redis

// Package redis provides Redis-based adapters for snowdash.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/snowdash/internal/ports"
)

// DefaultRevocationPrefix namespaces revoked session IDs.
const DefaultRevocationPrefix = "snowdash:revoked:"

// RevocationStore is a Redis-based deny-list of signed-out session IDs.
// Entries expire together with the session token they revoke.
type RevocationStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.RevocationStore = (*RevocationStore)(nil)

// NewRevocationStore creates a new Redis-based revocation store.
func NewRevocationStore(client redis.UniversalClient) *RevocationStore {
	return NewRevocationStoreWithPrefix(client, DefaultRevocationPrefix)
}

// NewRevocationStoreWithPrefix creates a revocation store with a custom key prefix.
func NewRevocationStoreWithPrefix(client redis.UniversalClient, prefix string) *RevocationStore {
	return &RevocationStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Revoke records id until the given time. Revoking an already expired
// session is a no-op; revoking twice extends nothing and is not an error.
func (s *RevocationStore) Revoke(ctx context.Context, id string, until time.Time) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.client.SetNX(ctx, s.prefix+id, until.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether id has been signed out.
func (s *RevocationStore) IsRevoked(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}

	n, err := s.client.Exists(ctx, s.prefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}
