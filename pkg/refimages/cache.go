package refimages

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedImage is a fetched reference kept between requests.
type CachedImage struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Cache stores fetched references by URL.
type Cache interface {
	Get(ctx context.Context, rawURL string) (*CachedImage, bool, error)
	Set(ctx context.Context, rawURL string, img *CachedImage, ttl time.Duration) error
}

// RedisCache keeps fetched references in Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache wraps a Redis client. Returns nil for a nil client so callers
// can pass the result straight to NewMaterializer.
func NewRedisCache(client *redis.Client) Cache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client, prefix: "refimage:"}
}

func (c *RedisCache) key(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get returns the cached image. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, rawURL string) (*CachedImage, bool, error) {
	data, err := c.client.Get(ctx, c.key(rawURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached reference: %w", err)
	}

	var img CachedImage
	if err := json.Unmarshal(data, &img); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached reference: %w", err)
	}
	return &img, true, nil
}

// Set stores an image with a TTL.
func (c *RedisCache) Set(ctx context.Context, rawURL string, img *CachedImage, ttl time.Duration) error {
	data, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("failed to encode reference: %w", err)
	}
	if err := c.client.Set(ctx, c.key(rawURL), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache reference: %w", err)
	}
	return nil
}
