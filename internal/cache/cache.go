// Package cache provides the TTL key/value store used for generation
// results and embeddings. Redis backs production deployments; a small
// in-process store covers unconfigured setups and tests.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-key TTL. Get reports a
// miss as (nil, false, nil); errors are reserved for transport failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
