package geocache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// statsSampleLimit caps how many entries the stats pass inspects; large
// stores report sampled age and hit-count figures.
const statsSampleLimit = 1000

// Stats is a read-only snapshot of cache occupancy for monitoring.
type Stats struct {
	Entries          int            `json:"entries"`
	MemoryBytes      int64          `json:"memory_bytes"`
	EntriesPctOfMax  float64        `json:"entries_pct_of_max"`
	MemoryPctOfMax   float64        `json:"memory_pct_of_max"`
	AgeBuckets       map[string]int `json:"age_buckets"`
	AverageHitCount  float64        `json:"average_hit_count"`
	Sampled          bool           `json:"sampled"`
	BackendAvailable bool           `json:"backend_available"`
}

const (
	ageBucketUnderHour = "<1h"
	ageBucketUnderDay  = "1-24h"
	ageBucketUnderWeek = "1-7d"
	ageBucketUnderTTL  = "7-30d"
	ageBucketOverTTL   = ">30d"
)

// Stats reports entry count, memory usage relative to the configured
// limits, an age distribution and the average hit count. Figures are
// sampled when the store holds more entries than the sample limit.
func (c *Cache) Stats(ctx context.Context) Stats {
	stats := Stats{
		AgeBuckets: map[string]int{
			ageBucketUnderHour: 0,
			ageBucketUnderDay:  0,
			ageBucketUnderWeek: 0,
			ageBucketUnderTTL:  0,
			ageBucketOverTTL:   0,
		},
		BackendAvailable: true,
	}

	count, err := c.store.Count(ctx)
	if err != nil {
		c.logger.Warn("cache stats unavailable", zap.Error(err))
		stats.BackendAvailable = false
		return stats
	}
	stats.Entries = count

	if usage, err := c.store.MemoryUsage(ctx); err == nil {
		stats.MemoryBytes = usage
	} else {
		c.logger.Warn("cache memory usage unavailable", zap.Error(err))
	}

	if c.cfg.MaxEntries > 0 {
		stats.EntriesPctOfMax = float64(count) / float64(c.cfg.MaxEntries) * 100
	}
	if c.cfg.MaxMemoryMB > 0 {
		ceiling := int64(c.cfg.MaxMemoryMB) * 1024 * 1024
		stats.MemoryPctOfMax = float64(stats.MemoryBytes) / float64(ceiling) * 100
	}

	entries, err := c.store.Scan(ctx, statsSampleLimit)
	if err != nil {
		c.logger.Warn("cache stats scan failed", zap.Error(err))
		return stats
	}
	stats.Sampled = count > len(entries)

	if len(entries) == 0 {
		return stats
	}

	now := c.now()
	var totalHits int
	for _, entry := range entries {
		totalHits += entry.Entry.Result.HitCount

		age := now.Sub(entry.Entry.Result.CachedAt)
		switch {
		case age < time.Hour:
			stats.AgeBuckets[ageBucketUnderHour]++
		case age < 24*time.Hour:
			stats.AgeBuckets[ageBucketUnderDay]++
		case age < 7*24*time.Hour:
			stats.AgeBuckets[ageBucketUnderWeek]++
		case age < 30*24*time.Hour:
			stats.AgeBuckets[ageBucketUnderTTL]++
		default:
			stats.AgeBuckets[ageBucketOverTTL]++
		}
	}
	stats.AverageHitCount = float64(totalHits) / float64(len(entries))

	return stats
}
