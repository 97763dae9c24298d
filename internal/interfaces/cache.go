package interfaces

import (
	"context"
	"time"
)

// Cache is the shared-computation cache abstraction. All cross-component
// caching goes through an injected Cache; there is no process-wide
// singleton, so estimator state ownership is never violated by sharing.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
