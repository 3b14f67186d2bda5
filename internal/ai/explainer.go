package ai

import (
	"context"

	"github.com/tsucess/paeshift-backend-sub004/internal/matching"
)

// MatchSummary is a generated, human-readable explanation of why a pair
// scored well. It decorates match-found events and never influences the
// score itself.
type MatchSummary struct {
	Summary    string
	Highlights []string
	Raw        string
}

// Explainer produces summaries for high-score matches.
type Explainer interface {
	Explain(ctx context.Context, job *matching.Job, user *matching.User, score *matching.MatchScore) (*MatchSummary, error)
}
