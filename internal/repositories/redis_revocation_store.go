package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedTokenKeyPrefix = "revoked_token:"

// redisRevocationStore keeps revoked token ids as Redis keys that expire with the token
type redisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore creates a revocation store backed by Redis
func NewRedisRevocationStore(client *redis.Client) *redisRevocationStore {
	return &redisRevocationStore{client: client}
}

// Revoke stores the token id with a TTL matching the token's remaining lifetime
func (s *redisRevocationStore) Revoke(ctx context.Context, tokenID string, userID int, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, validation rejects it anyway
		return nil
	}

	if err := s.client.Set(ctx, revokedTokenKeyPrefix+tokenID, strconv.Itoa(userID), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}

// IsRevoked reports whether a token id is on the revocation list
func (s *redisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired is a no-op: Redis expires the keys itself
func (s *redisRevocationStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	return 0, nil
}
