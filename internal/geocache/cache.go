package geocache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/geocoding"
)

// Policy selects which entries are removed when the cache exceeds its
// configured limits.
type Policy string

const (
	PolicyLRU    Policy = "lru"
	PolicyTTL    Policy = "ttl"
	PolicyRandom Policy = "random"
)

const (
	defaultTTL = 30 * 24 * time.Hour
	// evictionWindow limits how often the limit check may run.
	evictionWindow = 60 * time.Second
	// evictionFraction is the share of entries removed on a count breach.
	evictionFraction = 0.20
	// memoryTargetFraction is the fill level targeted after a memory
	// ceiling breach.
	memoryTargetFraction = 0.80
	evictionScanLimit    = 10000
)

// Config tunes the cache limits and eviction behavior.
type Config struct {
	TTL         time.Duration `mapstructure:"ttl"`
	MaxEntries  int           `mapstructure:"max_entries"`
	MaxMemoryMB int           `mapstructure:"max_memory_mb"`
	Policy      Policy        `mapstructure:"policy"`
}

// Cache satisfies geocoding.Cache.
var _ geocoding.Cache = (*Cache)(nil)

// Cache stores geocoding results keyed by normalized-address hashes. Every
// backend failure is logged and absorbed: gets become misses, puts and
// evictions become no-ops, so geocoding continues uncached.
type Cache struct {
	store  Store
	logger *zap.Logger
	cfg    Config

	mu           sync.Mutex
	lastEviction time.Time

	now func() time.Time
}

func New(store Store, cfg Config, logger *zap.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyLRU
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		store:  store,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Get returns the cached result for an address, refreshing its access
// bookkeeping while keeping the remaining TTL intact.
func (c *Cache) Get(ctx context.Context, address string) (*geocoding.GeocodeResult, bool) {
	key := Key(address)

	entry, ok, err := c.store.Load(ctx, key)
	if err != nil {
		c.logger.Warn("cache backend unavailable, treating as miss", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	remaining := entry.ExpiresAt.Sub(c.now())
	if remaining <= 0 {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("deleting expired cache entry failed", zap.Error(err))
		}
		return nil, false
	}

	entry.Result.HitCount++
	entry.Result.LastAccessed = c.now()
	if err := c.store.Save(ctx, key, entry, remaining); err != nil {
		c.logger.Warn("refreshing cache entry failed", zap.Error(err))
	}

	result := entry.Result
	return &result, true
}

// Put stores a result with the full configured TTL and reset bookkeeping.
func (c *Cache) Put(ctx context.Context, address string, result *geocoding.GeocodeResult) {
	if result == nil {
		return
	}

	now := c.now()
	stored := *result
	stored.HitCount = 0
	stored.CachedAt = now
	stored.LastAccessed = now
	stored.CacheHit = false

	entry := &Entry{
		Result:    stored,
		ExpiresAt: now.Add(c.cfg.TTL),
	}

	if err := c.store.Save(ctx, Key(address), entry, c.cfg.TTL); err != nil {
		c.logger.Warn("caching geocode result failed", zap.Error(err))
	}
}

// Clear removes every entry and resets the eviction window.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.lastEviction = time.Time{}
	c.mu.Unlock()

	if err := c.store.Flush(ctx); err != nil {
		c.logger.Warn("clearing cache failed", zap.Error(err))
		return err
	}
	return nil
}

// EvictIfOverLimits enforces the entry-count and memory ceilings. It runs
// at most once per eviction window and returns how many entries were
// removed.
func (c *Cache) EvictIfOverLimits(ctx context.Context) int {
	c.mu.Lock()
	if c.now().Sub(c.lastEviction) < evictionWindow {
		c.mu.Unlock()
		return 0
	}
	c.lastEviction = c.now()
	c.mu.Unlock()

	evicted := 0

	count, err := c.store.Count(ctx)
	if err != nil {
		c.logger.Warn("cache count unavailable, skipping eviction", zap.Error(err))
		return 0
	}

	if c.cfg.MaxEntries > 0 && count > c.cfg.MaxEntries {
		target := int(float64(count) * evictionFraction)
		if target < 1 {
			target = 1
		}
		removed := c.evict(ctx, target)
		evicted += removed
		count -= removed
		c.logger.Info("evicted cache entries over count limit",
			zap.Int("removed", removed),
			zap.Int("max_entries", c.cfg.MaxEntries),
			zap.String("policy", string(c.cfg.Policy)),
		)
	}

	if c.cfg.MaxMemoryMB > 0 {
		usage, err := c.store.MemoryUsage(ctx)
		if err != nil {
			c.logger.Warn("cache memory usage unavailable", zap.Error(err))
			return evicted
		}
		ceiling := int64(c.cfg.MaxMemoryMB) * 1024 * 1024
		if usage > ceiling {
			targetBytes := float64(ceiling) * memoryTargetFraction
			factor := 1 - targetBytes/float64(usage)
			target := int(float64(count) * factor)
			if target < 1 {
				target = 1
			}
			removed := c.evict(ctx, target)
			evicted += removed
			c.logger.Info("evicted cache entries over memory limit",
				zap.Int("removed", removed),
				zap.Int64("usage_bytes", usage),
				zap.Int64("ceiling_bytes", ceiling),
				zap.String("policy", string(c.cfg.Policy)),
			)
		}
	}

	return evicted
}
