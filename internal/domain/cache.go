package domain

import (
	"context"
	"time"
)

// Cache defines the interface for a key-value cache with TTL support.
// Implementations return ErrCacheMiss when the key is absent.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
