package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drug-reco-engine/internal/domain"
)

// RedisStore is a PredictionStore backed by Redis.
type RedisStore struct {
	redis *redis.Client
}

type cachedPrediction struct {
	Data     []domain.LabelProbability `json:"data"`
	CachedAt time.Time                 `json:"cached_at"`
}

// NewRedisStore connects to the configured Redis URL and pings it.
func NewRedisStore(config domain.CacheConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{redis: client}, nil
}

// GetPrediction reads a cached distribution. Corrupted entries are removed
// and reported as misses.
func (s *RedisStore) GetPrediction(ctx context.Context, key string) ([]domain.LabelProbability, bool, error) {
	val, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get prediction cache: %w", err)
	}

	var cached cachedPrediction
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		s.redis.Del(ctx, key)
		return nil, false, nil
	}
	return cached.Data, true, nil
}

// SetPrediction stores a distribution with the given TTL.
func (s *RedisStore) SetPrediction(ctx context.Context, key string, probs []domain.LabelProbability, ttl time.Duration) error {
	jsonData, err := json.Marshal(cachedPrediction{Data: probs, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal prediction cache data: %w", err)
	}
	return s.redis.Set(ctx, key, jsonData, ttl).Err()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.redis.Close()
}
