package geometrics

import "sort"

// recentSampleSize caps how many ring-buffer operations a snapshot carries.
const recentSampleSize = 100

// ProviderStats is the aggregated view of one provider's counters.
type ProviderStats struct {
	Total       int            `json:"total"`
	Successes   int            `json:"successes"`
	CacheHits   int            `json:"cache_hits"`
	SuccessRate float64        `json:"success_rate"`
	AverageTime float64        `json:"average_time"`
	Errors      map[string]int `json:"errors,omitempty"`
}

// SeriesPoint is one hourly or daily aggregate bucket.
type SeriesPoint struct {
	Bucket    string `json:"bucket"`
	Total     int    `json:"total"`
	Successes int    `json:"successes"`
	CacheHits int    `json:"cache_hits"`
}

// Snapshot is a consistent read-only view of the recorder state.
type Snapshot struct {
	TotalOperations     int                      `json:"total_operations"`
	SuccessRate         float64                  `json:"success_rate"`
	CacheHitRate        float64                  `json:"cache_hit_rate"`
	AverageResponseTime float64                  `json:"average_response_time"`
	Providers           map[string]ProviderStats `json:"providers"`
	Hourly              []SeriesPoint            `json:"hourly"`
	Daily               []SeriesPoint            `json:"daily"`
	RecentOperations    []Operation              `json:"recent_operations"`
}

// Snapshot copies the current aggregates. The recent-operations slice is
// newest first and capped at the sample size.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		TotalOperations: r.total,
		Providers:       make(map[string]ProviderStats, len(r.providers)),
	}

	if r.total > 0 {
		snap.SuccessRate = float64(r.successes) / float64(r.total)
		snap.CacheHitRate = float64(r.cacheHits) / float64(r.total)
		snap.AverageResponseTime = r.totalTime / float64(r.total)
	}

	for name, counters := range r.providers {
		stats := ProviderStats{
			Total:     counters.total,
			Successes: counters.successes,
			CacheHits: counters.cacheHits,
			Errors:    make(map[string]int, len(counters.errors)),
		}
		if counters.total > 0 {
			stats.SuccessRate = float64(counters.successes) / float64(counters.total)
			stats.AverageTime = counters.totalTime / float64(counters.total)
		}
		for errType, count := range counters.errors {
			stats.Errors[errType] = count
		}
		snap.Providers[name] = stats
	}

	snap.Hourly = seriesFrom(r.hourly)
	snap.Daily = seriesFrom(r.daily)

	sample := len(r.recent)
	if sample > recentSampleSize {
		sample = recentSampleSize
	}
	snap.RecentOperations = make([]Operation, sample)
	copy(snap.RecentOperations, r.recent[:sample])

	return snap
}

func seriesFrom(buckets map[string]*bucket) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(buckets))
	for key, b := range buckets {
		points = append(points, SeriesPoint{
			Bucket:    key,
			Total:     b.total,
			Successes: b.successes,
			CacheHits: b.cacheHits,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Bucket < points[j].Bucket })
	return points
}
