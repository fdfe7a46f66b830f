package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/isdelr/skillnotes-be/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "sess:"

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	client RedisClient
}

// NewRedisStore creates a new RedisStore.
func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisClient connects to the server at rawURL and verifies it answers.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func redisKey(sid string) string {
	return redisKeyPrefix + sid
}

// Get loads a session.
func (s *RedisStore) Get(ctx context.Context, sid string) (models.SessionData, error) {
	raw, err := s.client.Get(ctx, redisKey(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.SessionData{}, models.ErrNotFound
		}
		return models.SessionData{}, fmt.Errorf("redis error: %w", err)
	}

	var data models.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.SessionData{}, fmt.Errorf("decode session: %w", err)
	}
	return data, nil
}

// Save stores a session with a TTL matching expire. An expire in the past
// removes the session.
func (s *RedisStore) Save(ctx context.Context, sid string, data models.SessionData, expire time.Time) error {
	ttl := time.Until(expire)
	if ttl <= 0 {
		return s.Destroy(ctx, sid)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(sid), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// Destroy removes a session.
func (s *RedisStore) Destroy(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, redisKey(sid)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

// PruneExpired is a no-op; Redis expires keys itself.
func (s *RedisStore) PruneExpired(context.Context) (int64, error) {
	return 0, nil
}
