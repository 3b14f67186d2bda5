package geocache

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"
)

// evict removes up to target entries chosen by the configured policy and
// returns how many were actually deleted.
func (c *Cache) evict(ctx context.Context, target int) int {
	if target <= 0 {
		return 0
	}

	entries, err := c.store.Scan(ctx, evictionScanLimit)
	if err != nil {
		c.logger.Warn("cache scan failed, skipping eviction", zap.Error(err))
		return 0
	}
	if len(entries) == 0 {
		return 0
	}

	victims := c.selectVictims(entries, target)
	if len(victims) == 0 {
		return 0
	}

	if err := c.store.Delete(ctx, victims...); err != nil {
		c.logger.Warn("cache delete failed during eviction", zap.Error(err))
		return 0
	}
	return len(victims)
}

func (c *Cache) selectVictims(entries []KeyedEntry, target int) []string {
	if target > len(entries) {
		target = len(entries)
	}

	switch c.cfg.Policy {
	case PolicyRandom:
		rand.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
	case PolicyTTL:
		// Shortest remaining lifetime goes first.
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Entry.ExpiresAt.Before(entries[j].Entry.ExpiresAt)
		})
	default: // PolicyLRU
		sort.SliceStable(entries, func(i, j int) bool {
			return lastUse(entries[i]).Before(lastUse(entries[j]))
		})
	}

	victims := make([]string, 0, target)
	for _, entry := range entries[:target] {
		victims = append(victims, entry.Key)
	}
	return victims
}

func lastUse(e KeyedEntry) time.Time {
	if !e.Entry.Result.LastAccessed.IsZero() {
		return e.Entry.Result.LastAccessed
	}
	return e.Entry.Result.CachedAt
}
