// Package cache provides a pluggable key/value cache with TTL semantics.
// The pipeline treats every backend as best-effort: a cache failure is
// never a correctness problem, only extra external lookups.
package cache

import (
	"context"
	"time"
)

// Cache is the injectable cache abstraction. Single-instance deployments
// use Memory; multi-instance deployments share a Redis backend without any
// change to engine logic.
type Cache interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
