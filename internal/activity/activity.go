// Package activity computes per-user engagement scores from rolling
// activity-log aggregates.
package activity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// window is the activity-log lookback.
	window = 30 * 24 * time.Hour
	// cacheTTL bounds how long a computed score is reused.
	cacheTTL = time.Hour

	loginWeight         = 10
	jobViewWeight       = 5
	applicationWeight   = 20
	profileUpdateWeight = 15

	// normalization divides the weighted raw score into [0,1].
	normalization = 500.0
	// minRecencyFactor floors the decay for long-idle users.
	minRecencyFactor = 0.1
)

// Counts aggregates one user's activity-log entries inside the window.
type Counts struct {
	Logins         int
	JobViews       int
	Applications   int
	ProfileUpdates int
}

// Reader is the external activity-log contract.
type Reader interface {
	ActivityCounts(ctx context.Context, userID string, since time.Time) (Counts, error)
	// LastLogin returns nil when the user has never logged in.
	LastLogin(ctx context.Context, userID string) (*time.Time, error)
}

type cachedScore struct {
	score     float64
	expiresAt time.Time
}

// Engine scores user engagement in [0,1], caching each user's score for
// an hour. Data-access failures degrade to a zero score.
type Engine struct {
	reader Reader
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]cachedScore

	now func() time.Time
}

func NewEngine(reader Reader, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		reader: reader,
		logger: logger,
		cache:  make(map[string]cachedScore),
		now:    time.Now,
	}
}

// Score returns the engagement score for a user.
func (e *Engine) Score(ctx context.Context, userID string) float64 {
	now := e.now()

	e.mu.Lock()
	if cached, ok := e.cache[userID]; ok && now.Before(cached.expiresAt) {
		e.mu.Unlock()
		return cached.score
	}
	e.mu.Unlock()

	score := e.compute(ctx, userID, now)

	e.mu.Lock()
	e.cache[userID] = cachedScore{score: score, expiresAt: now.Add(cacheTTL)}
	e.mu.Unlock()

	return score
}

func (e *Engine) compute(ctx context.Context, userID string, now time.Time) float64 {
	counts, err := e.reader.ActivityCounts(ctx, userID, now.Add(-window))
	if err != nil {
		e.logger.Warn("reading activity counts failed, scoring user as inactive",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return 0
	}

	raw := float64(counts.Logins*loginWeight +
		counts.JobViews*jobViewWeight +
		counts.Applications*applicationWeight +
		counts.ProfileUpdates*profileUpdateWeight)

	// Users with no recorded login keep the full factor.
	recency := 1.0
	lastLogin, err := e.reader.LastLogin(ctx, userID)
	if err != nil {
		e.logger.Warn("reading last login failed, scoring user as inactive",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return 0
	}
	if lastLogin != nil {
		days := now.Sub(*lastLogin).Hours() / 24
		recency = 1.0 - days/30
		if recency < minRecencyFactor {
			recency = minRecencyFactor
		}
	}

	score := raw * recency / normalization
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Invalidate drops a user's cached score.
func (e *Engine) Invalidate(userID string) {
	e.mu.Lock()
	delete(e.cache, userID)
	e.mu.Unlock()
}
