// Package cache provides byte caches used to avoid repeating ERP reads.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values with a TTL. Implementations are safe for
// concurrent use. A miss is reported with ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
