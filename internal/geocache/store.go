// Package geocache caches geocoding results under normalized-address hash
// keys with TTL expiry and configurable eviction policies.
package geocache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/tsucess/paeshift-backend-sub004/internal/geocoding"
)

// Entry wraps a cached result together with its expiry deadline.
type Entry struct {
	Result    geocoding.GeocodeResult `json:"result"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// KeyedEntry pairs an entry with its store key for scans.
type KeyedEntry struct {
	Key   string
	Entry *Entry
}

// Store is the persistence backend for the cache. Implementations must be
// safe for concurrent use. Any error is treated by the cache as a miss or
// no-op so a broken backend never breaks geocoding.
type Store interface {
	Load(ctx context.Context, key string) (*Entry, bool, error)
	Save(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Count(ctx context.Context) (int, error)
	// Scan returns up to limit live entries; limit <= 0 means no cap.
	Scan(ctx context.Context, limit int) ([]KeyedEntry, error)
	// MemoryUsage reports backend memory consumption in bytes. It may be
	// a sampled estimate on large stores.
	MemoryUsage(ctx context.Context) (int64, error)
	Flush(ctx context.Context) error
}

// NormalizeAddress lowercases and trims an address so that trivially
// different spellings share a cache slot.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Key hashes a normalized address to the fixed-length store key.
func Key(address string) string {
	sum := sha256.Sum256([]byte(NormalizeAddress(address)))
	return fmt.Sprintf("%x", sum)
}
