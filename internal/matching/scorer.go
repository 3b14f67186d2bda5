package matching

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/activity"
	"github.com/tsucess/paeshift-backend-sub004/internal/geo"
)

// Sub-score weights. They must sum to exactly 1.0; TotalWeight is asserted
// in tests.
const (
	weightLocation   = 0.35
	weightSkills     = 0.25
	weightActivity   = 0.15
	weightRating     = 0.15
	weightExperience = 0.10
)

const (
	// locationCutoffKm is the distance beyond which location scores zero.
	locationCutoffKm = 50.0
	// neutralRating is the default sub-score for users with no reviews.
	neutralRating = 0.5

	matchCacheTTL = time.Hour
)

// Deps aggregates the external reads shared across all sub-scorers.
type Deps struct {
	Profiles ProfileReader
	Activity *activity.Engine
	Logger   *zap.Logger
}

// subScorer is one independently computable compatibility signal. A
// failing sub-scorer degrades to its default value instead of aborting
// the pair.
type subScorer interface {
	Name() string
	Weight() float64
	DefaultOnError() float64
	Score(ctx context.Context, deps Deps, job *Job, user *User) (float64, error)
}

type cachedMatch struct {
	score     *MatchScore
	expiresAt time.Time
}

// Scorer combines the five weighted sub-scores into a final match score
// per (job, user) pair, caching pair results for an hour.
type Scorer struct {
	deps    Deps
	scorers []subScorer

	mu    sync.Mutex
	cache map[string]cachedMatch

	now func() time.Time
}

func NewScorer(profiles ProfileReader, engine *activity.Engine, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		deps: Deps{Profiles: profiles, Activity: engine, Logger: logger},
		scorers: []subScorer{
			locationScorer{},
			skillsScorer{},
			activityScorer{},
			ratingScorer{},
			experienceScorer{},
		},
		cache: make(map[string]cachedMatch),
		now:   time.Now,
	}
}

// TotalWeight returns the sum of all sub-score weights.
func TotalWeight() float64 {
	return weightLocation + weightSkills + weightActivity + weightRating + weightExperience
}

// MatchScore computes the weighted score for one pair. It never fails:
// each sub-score error degrades to that scorer's default and is logged.
func (s *Scorer) MatchScore(ctx context.Context, job *Job, user *User) *MatchScore {
	key := job.ID + "|" + user.ID

	s.mu.Lock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		s.mu.Unlock()
		return cached.score
	}
	s.mu.Unlock()

	result := &MatchScore{
		SubjectID:  job.ID,
		TargetID:   user.ID,
		Components: make(map[string]float64, len(s.scorers)),
	}

	for _, scorer := range s.scorers {
		value, err := scorer.Score(ctx, s.deps, job, user)
		if err != nil {
			value = scorer.DefaultOnError()
			s.deps.Logger.Warn("sub-score computation failed, using default",
				zap.String("component", scorer.Name()),
				zap.String("job_id", job.ID),
				zap.String("user_id", user.ID),
				zap.Float64("default", value),
				zap.Error(err),
			)
		}
		value = clamp01(value)
		result.Components[scorer.Name()] = value
		result.Score += value * scorer.Weight()
	}
	result.Score = clamp01(result.Score)

	s.mu.Lock()
	s.cache[key] = cachedMatch{score: result, expiresAt: s.now().Add(matchCacheTTL)}
	s.mu.Unlock()

	return result
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type locationScorer struct{}

func (locationScorer) Name() string            { return "location" }
func (locationScorer) Weight() float64         { return weightLocation }
func (locationScorer) DefaultOnError() float64 { return 0 }

func (locationScorer) Score(ctx context.Context, deps Deps, job *Job, user *User) (float64, error) {
	if !job.HasCoordinates() {
		return 0, nil
	}

	loc, err := deps.Profiles.LastLocation(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("last location for user %s: %w", user.ID, err)
	}
	if loc == nil {
		return 0, nil
	}

	distance := geo.Distance(*job.Latitude, *job.Longitude, loc.Latitude, loc.Longitude)
	score := 1 - distance/locationCutoffKm
	if score < 0 {
		score = 0
	}
	return score, nil
}

type skillsScorer struct{}

func (skillsScorer) Name() string            { return "skills" }
func (skillsScorer) Weight() float64         { return weightSkills }
func (skillsScorer) DefaultOnError() float64 { return 0 }

func (skillsScorer) Score(ctx context.Context, deps Deps, job *Job, user *User) (float64, error) {
	var industryScore float64
	if job.IndustryID != "" {
		count, err := deps.Profiles.CompletedJobs(ctx, user.ID, CompletedJobsFilter{IndustryID: job.IndustryID})
		if err != nil {
			return 0, fmt.Errorf("completed jobs in industry %s: %w", job.IndustryID, err)
		}
		industryScore = ratio(count, 5) * 0.6
	}

	var subcategoryScore float64
	if job.SubcategoryID != "" {
		count, err := deps.Profiles.CompletedJobs(ctx, user.ID, CompletedJobsFilter{SubcategoryID: job.SubcategoryID})
		if err != nil {
			return 0, fmt.Errorf("completed jobs in subcategory %s: %w", job.SubcategoryID, err)
		}
		subcategoryScore = ratio(count, 3) * 0.4
	}

	return industryScore + subcategoryScore, nil
}

type activityScorer struct{}

func (activityScorer) Name() string            { return "activity" }
func (activityScorer) Weight() float64         { return weightActivity }
func (activityScorer) DefaultOnError() float64 { return 0 }

func (activityScorer) Score(ctx context.Context, deps Deps, _ *Job, user *User) (float64, error) {
	if deps.Activity == nil {
		return 0, nil
	}
	return deps.Activity.Score(ctx, user.ID), nil
}

type ratingScorer struct{}

func (ratingScorer) Name() string            { return "rating" }
func (ratingScorer) Weight() float64         { return weightRating }
func (ratingScorer) DefaultOnError() float64 { return neutralRating }

func (ratingScorer) Score(ctx context.Context, deps Deps, _ *Job, user *User) (float64, error) {
	avg, err := deps.Profiles.AverageRating(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("average rating for user %s: %w", user.ID, err)
	}
	if avg == nil {
		return neutralRating, nil
	}

	rating := *avg
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}
	return (rating - 1) / 4, nil
}

type experienceScorer struct{}

func (experienceScorer) Name() string            { return "experience" }
func (experienceScorer) Weight() float64         { return weightExperience }
func (experienceScorer) DefaultOnError() float64 { return 0 }

func (experienceScorer) Score(ctx context.Context, deps Deps, _ *Job, user *User) (float64, error) {
	count, err := deps.Profiles.CompletedJobs(ctx, user.ID, CompletedJobsFilter{})
	if err != nil {
		return 0, fmt.Errorf("completed jobs for user %s: %w", user.ID, err)
	}
	return ratio(count, 20), nil
}

func ratio(count, denominator int) float64 {
	v := float64(count) / float64(denominator)
	if v > 1 {
		return 1
	}
	return v
}
