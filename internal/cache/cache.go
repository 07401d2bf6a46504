package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values by key with a time-to-live.
// Get decodes a hit into dst and reports whether the key was present and fresh.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}
