// Package matching scores job/worker compatibility and fans the scoring
// out across job×user combinations with a bounded worker pool.
package matching

import "time"

// Job is the posting side of a match. Coordinates are nil until the
// posting has been geocoded.
type Job struct {
	ID            string
	Title         string
	Latitude      *float64
	Longitude     *float64
	IndustryID    string
	SubcategoryID string
}

// User is the candidate side of a match.
type User struct {
	ID       string
	Username string
}

// Location is a user's last known position.
type Location struct {
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}

// MatchScore is the weighted combination of the five sub-scores for one
// (job, user) pair, with the per-component breakdown preserved.
type MatchScore struct {
	SubjectID  string             `json:"subject_id"`
	TargetID   string             `json:"target_id"`
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"component_scores"`
}

// JobMatch is one candidate in a job's result list.
type JobMatch struct {
	UserID   string  `json:"user_id"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	JobID    string  `json:"job_id"`
	JobTitle string  `json:"job_title"`
}

// UserMatch is one job in a user's result list.
type UserMatch struct {
	JobID    string  `json:"job_id"`
	JobTitle string  `json:"job_title"`
	Score    float64 `json:"score"`
	UserID   string  `json:"user_id"`
	Username string  `json:"username"`
}

// HasCoordinates reports whether the job has been geocoded.
func (j *Job) HasCoordinates() bool {
	return j != nil && j.Latitude != nil && j.Longitude != nil
}
