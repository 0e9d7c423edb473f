package admintoken

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "countries:admintoken:revoked"

// Revocations tracks revoked token ids until the token would have expired.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocations keeps revoked ids in-memory (single instance only).
type MemoryRevocations struct {
	mu  sync.Mutex
	ids map[string]time.Time
	now func() time.Time
}

// NewMemoryRevocations builds an in-memory revocation list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		ids: make(map[string]time.Time),
		now: time.Now,
	}
}

// Revoke marks a token id as revoked for ttl.
func (r *MemoryRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 || strings.TrimSpace(tokenID) == "" {
		return nil
	}
	r.mu.Lock()
	r.ids[tokenID] = r.now().Add(ttl)
	r.mu.Unlock()
	return nil
}

// IsRevoked checks if the token id is revoked.
func (r *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	expiry, ok := r.ids[tokenID]
	if !ok {
		return false, nil
	}
	if r.now().After(expiry) {
		delete(r.ids, tokenID)
		return false, nil
	}
	return true, nil
}

// RedisRevocations stores revoked ids in Redis with a TTL so entries vanish
// together with the token they block.
type RedisRevocations struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRevocations builds a Redis-backed revocation list.
func NewRedisRevocations(addr, password string) (*RedisRevocations, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	return NewRedisRevocationsWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	}), ""), nil
}

// NewRedisRevocationsWithClient wraps an existing client.
func NewRedisRevocationsWithClient(client redis.UniversalClient, prefix string) *RedisRevocations {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	return &RedisRevocations{client: client, prefix: prefix}
}

// Revoke marks a token id as revoked for ttl.
func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 || strings.TrimSpace(tokenID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.client.Set(ctx, r.key(tokenID), "1", ttl).Err()
}

// IsRevoked checks if the token id is revoked.
func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return res > 0, nil
}

// Close releases the Redis client.
func (r *RedisRevocations) Close() error {
	return r.client.Close()
}

func (r *RedisRevocations) key(tokenID string) string {
	return r.prefix + ":" + tokenID
}
