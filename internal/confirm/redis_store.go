package confirm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "confirm:v1:"

// RedisStore keeps pending confirmations in Redis with a matching TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed confirmation store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put stores the confirmation, replacing any prior one for the user.
func (s *RedisStore) Put(ctx context.Context, p Pending) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.client.Set(ctx, keyPrefix+p.UserID, payload, ttl).Err()
}

// Get fetches the user's confirmation. Expiry is re-checked against the
// stored timestamp, not just the key TTL.
func (s *RedisStore) Get(ctx context.Context, userID string) (Pending, error) {
	raw, err := s.client.Get(ctx, keyPrefix+userID).Result()
	if err == redis.Nil {
		return Pending{}, ErrNotFound
	}
	if err != nil {
		return Pending{}, err
	}
	var p Pending
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Pending{}, err
	}
	if time.Now().After(p.ExpiresAt) {
		_ = s.client.Del(ctx, keyPrefix+userID).Err()
		return Pending{}, ErrExpired
	}
	return p, nil
}

// Take removes and returns the user's confirmation using GETDEL, so only one
// caller can consume it.
func (s *RedisStore) Take(ctx context.Context, userID string) (Pending, error) {
	raw, err := s.client.GetDel(ctx, keyPrefix+userID).Result()
	if err == redis.Nil {
		return Pending{}, ErrNotFound
	}
	if err != nil {
		return Pending{}, err
	}
	var p Pending
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Pending{}, err
	}
	if time.Now().After(p.ExpiresAt) {
		return Pending{}, ErrExpired
	}
	return p, nil
}

// Delete removes the user's confirmation.
func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, keyPrefix+userID).Err()
}
