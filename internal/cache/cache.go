package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache interface for snapshot caching operations
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection
	Close() error
}

// KeyPrefixSnapshot is the prefix for campaign snapshot entries
const KeyPrefixSnapshot = "cache:campaign:snapshot"

// TTLSnapshot is the TTL for campaign snapshots; short, since stats move
// while a campaign is active.
const TTLSnapshot = 5 * time.Second

// SnapshotKey builds the cache key for one campaign's snapshot.
func SnapshotKey(campaignID int) string {
	return fmt.Sprintf("%s:%d", KeyPrefixSnapshot, campaignID)
}
