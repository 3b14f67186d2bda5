package matching

import "context"

// CompletedJobsFilter narrows completed-job counts to an industry and/or
// subcategory. Zero values mean no filter.
type CompletedJobsFilter struct {
	IndustryID    string
	SubcategoryID string
}

// ProfileReader is the read-only profile contract the storage layer
// provides for scoring.
type ProfileReader interface {
	// LastLocation returns nil when the user has no known location.
	LastLocation(ctx context.Context, userID string) (*Location, error)
	CompletedJobs(ctx context.Context, userID string, filter CompletedJobsFilter) (int, error)
	// AverageRating returns nil when the user has no reviews. Ratings are
	// on a 1-5 scale.
	AverageRating(ctx context.Context, userID string) (*float64, error)
}
