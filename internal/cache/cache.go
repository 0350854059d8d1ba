// Package cache keeps parse results keyed by the source file's content hash
// so re-submitting the same image skips OCR.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

const keyPrefix = "transcript-reader:result:"

// Entry is what gets cached for one content hash.
type Entry struct {
	TranscriptID uuid.UUID                   `json:"transcript_id"`
	Record       transcript.TranscriptRecord `json:"record"`
	NeedsReview  bool                        `json:"needs_review"`
}

// ResultCache stores and loads parse results.
type ResultCache interface {
	Get(ctx context.Context, contentHash string) (*Entry, bool, error)
	Set(ctx context.Context, contentHash string, e *Entry) error
	Close() error
}

// Key is the Redis key for a content hash.
func Key(contentHash string) string { return keyPrefix + contentHash }

// RedisCache wraps the Redis client with our key layout and TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Connect establishes a connection to Redis. An empty address yields a
// Noop cache.
func Connect(ctx context.Context, cfg common.CacheConfig, logger *slog.Logger) (ResultCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisAddr == "" {
		logger.Info("result cache disabled")
		return Noop{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, common.NewAppError(common.CodeStorage, fmt.Sprintf("connect redis %s", cfg.RedisAddr),
			errors.Join(common.ErrUnavailable, err))
	}
	logger.Info("result cache connected", "addr", cfg.RedisAddr, "ttl", cfg.TTL)
	return &RedisCache{client: client, ttl: cfg.TTL, logger: logger}, nil
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, contentHash string) (*Entry, bool, error) {
	data, err := c.client.Get(ctx, Key(contentHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading cache: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		// stale layout; treat as a miss and let the next Set overwrite it
		c.logger.Warn("cache.decode.failed", "hash", contentHash, "error", err)
		return nil, false, nil
	}
	return &e, true, nil
}

func (c *RedisCache) Set(ctx context.Context, contentHash string, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, Key(contentHash), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("error writing cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop never hits.
type Noop struct{}

func (Noop) Get(context.Context, string) (*Entry, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, *Entry) error { return nil }
func (Noop) Close() error { return nil }
