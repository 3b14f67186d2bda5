// Package storage implements the read-only data contracts consumed by
// the scoring components against a Postgres database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tsucess/paeshift-backend-sub004/internal/activity"
	"github.com/tsucess/paeshift-backend-sub004/internal/matching"
)

// PgReader exposes worker profile and activity-log reads. All queries are
// read-only; persistence belongs to the surrounding application.
type PgReader struct {
	db *sqlx.DB
}

func Open(dsn string) (*PgReader, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &PgReader{db: db}, nil
}

func NewPgReader(db *sql.DB) *PgReader {
	return &PgReader{db: sqlx.NewDb(db, "postgres")}
}

func (r *PgReader) Close() error {
	return r.db.Close()
}

type locationRow struct {
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	RecordedAt time.Time `db:"recorded_at"`
}

// LastLocation returns the most recent known location for a user, or nil
// when none has been recorded.
func (r *PgReader) LastLocation(ctx context.Context, userID string) (*matching.Location, error) {
	var row locationRow
	query := `
SELECT latitude, longitude, recorded_at
FROM user_locations
WHERE user_id = $1
ORDER BY recorded_at DESC
LIMIT 1
`
	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last location for user %s: %w", userID, err)
	}

	return &matching.Location{
		Latitude:   row.Latitude,
		Longitude:  row.Longitude,
		RecordedAt: row.RecordedAt,
	}, nil
}

// CompletedJobs counts a user's completed jobs, optionally narrowed by
// industry and/or subcategory.
func (r *PgReader) CompletedJobs(ctx context.Context, userID string, filter matching.CompletedJobsFilter) (int, error) {
	query := `
SELECT COUNT(*)
FROM jobs
WHERE worker_id = $1 AND status = 'completed'
`
	args := []interface{}{userID}

	if filter.IndustryID != "" {
		args = append(args, filter.IndustryID)
		query += fmt.Sprintf(" AND industry_id = $%d", len(args))
	}
	if filter.SubcategoryID != "" {
		args = append(args, filter.SubcategoryID)
		query += fmt.Sprintf(" AND subcategory_id = $%d", len(args))
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("counting completed jobs for user %s: %w", userID, err)
	}
	return count, nil
}

// AverageRating returns the user's mean review rating on a 1-5 scale, or
// nil when the user has no reviews.
func (r *PgReader) AverageRating(ctx context.Context, userID string) (*float64, error) {
	var avg sql.NullFloat64
	query := `SELECT AVG(rating) FROM reviews WHERE reviewee_id = $1`

	if err := r.db.GetContext(ctx, &avg, query, userID); err != nil {
		return nil, fmt.Errorf("average rating for user %s: %w", userID, err)
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

type activityRow struct {
	Action string `db:"action"`
	Count  int    `db:"count"`
}

// ActivityCounts aggregates activity-log actions for a user since the
// given timestamp.
func (r *PgReader) ActivityCounts(ctx context.Context, userID string, since time.Time) (activity.Counts, error) {
	var rows []activityRow
	query := `
SELECT action, COUNT(*) AS count
FROM activity_logs
WHERE user_id = $1 AND created_at >= $2
GROUP BY action
`
	if err := r.db.SelectContext(ctx, &rows, query, userID, since); err != nil {
		return activity.Counts{}, fmt.Errorf("activity counts for user %s: %w", userID, err)
	}

	var counts activity.Counts
	for _, row := range rows {
		switch row.Action {
		case "login":
			counts.Logins = row.Count
		case "job_view":
			counts.JobViews = row.Count
		case "job_apply":
			counts.Applications = row.Count
		case "profile_update":
			counts.ProfileUpdates = row.Count
		}
	}
	return counts, nil
}

// LastLogin returns the timestamp of the user's most recent login action,
// or nil when the user has never logged in.
func (r *PgReader) LastLogin(ctx context.Context, userID string) (*time.Time, error) {
	var last time.Time
	query := `
SELECT created_at
FROM activity_logs
WHERE user_id = $1 AND action = 'login'
ORDER BY created_at DESC
LIMIT 1
`
	err := r.db.GetContext(ctx, &last, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last login for user %s: %w", userID, err)
	}
	return &last, nil
}

type jobRow struct {
	ID            string          `db:"id"`
	Title         string          `db:"title"`
	Latitude      sql.NullFloat64 `db:"latitude"`
	Longitude     sql.NullFloat64 `db:"longitude"`
	IndustryID    sql.NullString  `db:"industry_id"`
	SubcategoryID sql.NullString  `db:"subcategory_id"`
}

// OpenJobs loads postings eligible for matching.
func (r *PgReader) OpenJobs(ctx context.Context, limit int) ([]*matching.Job, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []jobRow
	query := `
SELECT id, title, latitude, longitude, industry_id, subcategory_id
FROM jobs
WHERE status = 'open'
ORDER BY created_at DESC
LIMIT $1
`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("loading open jobs: %w", err)
	}

	jobs := make([]*matching.Job, 0, len(rows))
	for _, row := range rows {
		job := &matching.Job{
			ID:            row.ID,
			Title:         row.Title,
			IndustryID:    row.IndustryID.String,
			SubcategoryID: row.SubcategoryID.String,
		}
		if row.Latitude.Valid && row.Longitude.Valid {
			lat, lon := row.Latitude.Float64, row.Longitude.Float64
			job.Latitude = &lat
			job.Longitude = &lon
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type userRow struct {
	ID       string `db:"id"`
	Username string `db:"username"`
}

// ActiveWorkers loads candidate workers eligible for matching.
func (r *PgReader) ActiveWorkers(ctx context.Context, limit int) ([]*matching.User, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []userRow
	query := `
SELECT id, username
FROM users
WHERE role = 'worker' AND is_active = TRUE
ORDER BY created_at DESC
LIMIT $1
`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("loading active workers: %w", err)
	}

	users := make([]*matching.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, &matching.User{ID: row.ID, Username: row.Username})
	}
	return users, nil
}
