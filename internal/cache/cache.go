// Package cache provides an optional Redis-backed cache of scan
// results, keyed by a content hash of the uploaded file, so repeat
// uploads skip detection entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/safeshare/safeshare/internal/detect"
)

// Config contains cache configuration.
type Config struct {
	RedisURL       string
	MaxConnections int
	MinIdleConns   int
	DefaultTTL     time.Duration
	KeyPrefix      string
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// ProfileCache caches dataset scan profiles in Redis.
type ProfileCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	stats  Stats
}

// NewProfileCache connects to Redis and verifies the connection.
func NewProfileCache(config *Config, logger *zap.Logger) (*ProfileCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	cache := &ProfileCache{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cache.client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("profile cache initialized",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Duration("default_ttl", config.DefaultTTL),
	)
	return cache, nil
}

// ContentKey hashes raw file bytes into a cache key.
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// Get returns the cached profiles for a content key, if present.
func (c *ProfileCache) Get(ctx context.Context, contentKey string) ([]detect.ColumnProfile, bool, error) {
	data, err := c.client.Get(ctx, c.key(contentKey)).Result()
	if err == redis.Nil {
		c.stats.Misses++
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	var profiles []detect.ColumnProfile
	if err := json.Unmarshal([]byte(data), &profiles); err != nil {
		c.logger.Warn("corrupted cache entry dropped", zap.String("key", contentKey))
		c.client.Del(ctx, c.key(contentKey))
		c.stats.Misses++
		return nil, false, nil
	}

	c.stats.Hits++
	c.logger.Debug("cache hit", zap.String("key", contentKey))
	return profiles, true, nil
}

// Set stores scan profiles under a content key with the default TTL.
func (c *ProfileCache) Set(ctx context.Context, contentKey string, profiles []detect.ColumnProfile) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}
	if err := c.client.Set(ctx, c.key(contentKey), data, c.config.DefaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache profiles: %w", err)
	}
	return nil
}

// Clear removes every cached scan under the configured prefix.
func (c *ProfileCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.config.KeyPrefix+":scan:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	c.logger.Info("cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// GetStats returns the hit/miss counters.
func (c *ProfileCache) GetStats() Stats {
	return c.stats
}

// Close closes the Redis connection.
func (c *ProfileCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *ProfileCache) key(contentKey string) string {
	return fmt.Sprintf("%s:scan:%s", c.config.KeyPrefix, contentKey)
}

// maskRedisURL masks credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	if !strings.Contains(url, "@") {
		return url
	}
	parts := strings.SplitN(url, "@", 2)
	if idx := strings.LastIndex(parts[0], ":"); idx > strings.Index(parts[0], "//") {
		parts[0] = parts[0][:idx] + ":***"
	}
	return parts[0] + "@" + parts[1]
}
