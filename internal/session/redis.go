package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a position is kept without being saved again.
const DefaultTTL = 30 * 24 * time.Hour

// DefaultPrefix namespaces position keys.
const DefaultPrefix = "lockstep:position:"

// RedisStore stores positions as JSON values in Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL sets the key expiry. Zero keeps keys forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore connects to redisURL, retrying the initial ping with
// exponential backoff.
func NewRedisStore(ctx context.Context, redisURL string, opts ...RedisOption) (*RedisStore, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	s := NewRedisStoreWithClient(redis.NewClient(redisOpts), opts...)
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return struct{}{}, s.client.Ping(pingCtx).Err()
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(3))
	if err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return s, nil
}

// NewRedisStoreWithClient creates a store from an existing client.
func NewRedisStoreWithClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(docID string) string {
	return s.prefix + docID
}

// Load returns the stored position or ErrNotFound.
func (s *RedisStore) Load(ctx context.Context, docID string) (Position, error) {
	data, err := s.client.Get(ctx, s.key(docID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Position{}, ErrNotFound
	}
	if err != nil {
		return Position{}, fmt.Errorf("load position: %w", err)
	}

	var pos Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return Position{}, fmt.Errorf("decode position: %w", err)
	}
	return pos, nil
}

// Save stores pos and refreshes its expiry.
func (s *RedisStore) Save(ctx context.Context, docID string, pos Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}
	if err := s.client.Set(ctx, s.key(docID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// Delete removes the stored position.
func (s *RedisStore) Delete(ctx context.Context, docID string) error {
	if err := s.client.Del(ctx, s.key(docID)).Err(); err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
