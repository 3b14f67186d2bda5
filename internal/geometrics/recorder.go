// Package geometrics records geocoding operation outcomes: a bounded
// ring of recent operations, per-provider counters and rolling
// hourly/daily aggregates. The recorder is an injectable value owned by
// its consumers rather than package-level state.
package geometrics

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultCapacity = 1000
	hourlyRetention = 48 * time.Hour
	dailyRetention  = 90 * 24 * time.Hour
	hourlyKeyFormat = "2006-01-02T15"
	dailyKeyFormat  = "2006-01-02"
)

// Operation is one geocode outcome, successful or not.
type Operation struct {
	ID        string    `json:"id"`
	Provider  string    `json:"provider"`
	Success   bool      `json:"success"`
	CacheHit  bool      `json:"cache_hit"`
	ErrorType string    `json:"error_type,omitempty"`
	Duration  float64   `json:"duration"`
	Timestamp time.Time `json:"timestamp"`
}

type providerCounters struct {
	total     int
	successes int
	cacheHits int
	totalTime float64
	errors    map[string]int
}

type bucket struct {
	total     int
	successes int
	cacheHits int
}

// Recorder accumulates operations. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	recent    []Operation
	capacity  int
	providers map[string]*providerCounters
	hourly    map[string]*bucket
	daily     map[string]*bucket

	total     int
	successes int
	cacheHits int
	totalTime float64

	now func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{
		capacity:  defaultCapacity,
		providers: make(map[string]*providerCounters),
		hourly:    make(map[string]*bucket),
		daily:     make(map[string]*bucket),
		now:       time.Now,
	}
}

// Record appends the operation to the ring buffer (newest first), updates
// the provider counters and time buckets, and prunes buckets that fell out
// of their retention windows.
func (r *Recorder) Record(op Operation) {
	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.recent = append([]Operation{op}, r.recent...)
	if len(r.recent) > r.capacity {
		r.recent = r.recent[:r.capacity]
	}

	r.total++
	r.totalTime += op.Duration
	if op.Success {
		r.successes++
	}
	if op.CacheHit {
		r.cacheHits++
	}

	if op.Provider != "" {
		counters, ok := r.providers[op.Provider]
		if !ok {
			counters = &providerCounters{errors: make(map[string]int)}
			r.providers[op.Provider] = counters
		}
		counters.total++
		counters.totalTime += op.Duration
		if op.Success {
			counters.successes++
		}
		if op.CacheHit {
			counters.cacheHits++
		}
		if op.ErrorType != "" {
			counters.errors[op.ErrorType]++
		}
	}

	r.bump(r.hourly, op.Timestamp.UTC().Format(hourlyKeyFormat), op)
	r.bump(r.daily, op.Timestamp.UTC().Format(dailyKeyFormat), op)
	r.pruneLocked()
}

func (r *Recorder) bump(buckets map[string]*bucket, key string, op Operation) {
	b, ok := buckets[key]
	if !ok {
		b = &bucket{}
		buckets[key] = b
	}
	b.total++
	if op.Success {
		b.successes++
	}
	if op.CacheHit {
		b.cacheHits++
	}
}

// Prune drops time buckets older than their retention windows.
func (r *Recorder) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
}

func (r *Recorder) pruneLocked() {
	hourlyCutoff := r.now().UTC().Add(-hourlyRetention).Format(hourlyKeyFormat)
	for key := range r.hourly {
		if key < hourlyCutoff {
			delete(r.hourly, key)
		}
	}

	dailyCutoff := r.now().UTC().Add(-dailyRetention).Format(dailyKeyFormat)
	for key := range r.daily {
		if key < dailyCutoff {
			delete(r.daily, key)
		}
	}
}
