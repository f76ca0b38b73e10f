package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "blacklist:"

// RevocationStore remembers logged-out token ids until they would have expired.
// A nil client turns every call into a no-op.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore wraps client, which may be nil.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Revoke marks jti revoked for ttl. Already expired tokens need no entry.
func (r *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if r == nil || r.client == nil || jti == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked. Redis failures are returned to the caller.
func (r *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r == nil || r.client == nil || jti == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
