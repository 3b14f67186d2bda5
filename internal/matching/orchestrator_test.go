package matching

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// rankedProfiles gives each user a deterministic score via completed-job
// counts parsed from the user ID suffix.
type rankedProfiles struct {
	jobsByUser map[string]int
	panicOn    string
}

func (p *rankedProfiles) LastLocation(_ context.Context, _ string) (*Location, error) {
	return nil, nil
}

func (p *rankedProfiles) CompletedJobs(_ context.Context, userID string, _ CompletedJobsFilter) (int, error) {
	if userID == p.panicOn {
		panic("corrupt profile row")
	}
	return p.jobsByUser[userID], nil
}

func (p *rankedProfiles) AverageRating(_ context.Context, _ string) (*float64, error) {
	// One star scores zero, so a user with no completed jobs scores zero
	// overall and drops out of the result lists.
	return floatPtr(1), nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (e *recordingEmitter) Emit(_ context.Context, event Event) {
	e.mu.Lock()
	e.events = append(e.events, event)
	e.mu.Unlock()
}

func newTestOrchestrator(profiles ProfileReader, emitter Emitter) *Orchestrator {
	scorer := NewScorer(profiles, nil, zap.NewNop())
	return NewOrchestrator(scorer, emitter, zap.NewNop())
}

func TestMatchJobsToUsersEmptyInputs(t *testing.T) {
	o := newTestOrchestrator(&rankedProfiles{}, nil)
	ctx := context.Background()

	results := o.MatchJobsToUsers(ctx, nil, []*User{testUser()})
	if results == nil {
		t.Fatal("expected a non-nil map for no jobs")
	}
	if len(results) != 0 {
		t.Fatalf("expected no entries, got %d", len(results))
	}

	results = o.MatchJobsToUsers(ctx, []*Job{testJob()}, nil)
	matches, ok := results["job-1"]
	if !ok {
		t.Fatal("every job must keep a key even with no users")
	}
	if matches == nil || len(matches) != 0 {
		t.Fatalf("expected an empty non-nil list, got %v", matches)
	}
}

func TestMatchJobsToUsersSortsDescending(t *testing.T) {
	profiles := &rankedProfiles{jobsByUser: map[string]int{
		"user-low":  2,
		"user-mid":  10,
		"user-high": 20,
	}}
	o := newTestOrchestrator(profiles, nil)

	users := []*User{
		{ID: "user-low", Username: "low"},
		{ID: "user-high", Username: "high"},
		{ID: "user-mid", Username: "mid"},
	}
	results := o.MatchJobsToUsers(context.Background(), []*Job{testJob()}, users)

	matches := results["job-1"]
	if len(matches) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Fatalf("candidates out of order at %d: %v", i, matches)
		}
	}
	if matches[0].UserID != "user-high" || matches[2].UserID != "user-low" {
		t.Fatalf("unexpected ranking: %v", matches)
	}
}

func TestMatchJobsToUsersExcludesZeroScores(t *testing.T) {
	profiles := &rankedProfiles{jobsByUser: map[string]int{"user-active": 10}}
	o := newTestOrchestrator(profiles, nil)

	users := []*User{
		{ID: "user-active", Username: "active"},
		{ID: "user-blank", Username: "blank"},
	}
	results := o.MatchJobsToUsers(context.Background(), []*Job{testJob()}, users)

	matches := results["job-1"]
	if len(matches) != 1 || matches[0].UserID != "user-active" {
		t.Fatalf("zero-score users must be excluded, got %v", matches)
	}
}

func TestMatchJobsToUsersIsolatesPanics(t *testing.T) {
	profiles := &rankedProfiles{
		jobsByUser: map[string]int{"user-1": 10},
		panicOn:    "user-boom",
	}
	o := newTestOrchestrator(profiles, nil)

	jobs := make([]*Job, 0, 12)
	for i := 0; i < 12; i++ {
		jobs = append(jobs, &Job{ID: fmt.Sprintf("job-%d", i), IndustryID: "industry-1"})
	}
	// Job 5 pairs with the poisoned user; every other job pairs with a
	// healthy one.
	results := make(map[string][]JobMatch)
	for i, job := range jobs {
		user := testUser()
		if i == 5 {
			user = &User{ID: "user-boom", Username: "boom"}
		}
		partial := o.MatchJobsToUsers(context.Background(), []*Job{job}, []*User{user})
		results[job.ID] = partial[job.ID]
	}

	for i, job := range jobs {
		matches, ok := results[job.ID]
		if !ok {
			t.Fatalf("job %s lost its key", job.ID)
		}
		if i == 5 {
			if len(matches) != 0 {
				t.Fatalf("the failed task must yield an empty list, got %v", matches)
			}
			continue
		}
		if len(matches) != 1 {
			t.Fatalf("sibling job %s must be unaffected, got %v", job.ID, matches)
		}
	}
}

func TestMatchJobsToUsersHandlesManyJobs(t *testing.T) {
	profiles := &rankedProfiles{jobsByUser: map[string]int{"user-1": 10}}
	o := newTestOrchestrator(profiles, nil)

	jobs := make([]*Job, 0, 50)
	for i := 0; i < 50; i++ {
		jobs = append(jobs, &Job{ID: fmt.Sprintf("job-%d", i), IndustryID: "industry-1"})
	}
	results := o.MatchJobsToUsers(context.Background(), jobs, []*User{testUser()})

	if len(results) != 50 {
		t.Fatalf("expected every job scored, got %d", len(results))
	}
	for _, job := range jobs {
		if len(results[job.ID]) != 1 {
			t.Fatalf("job %s missing its candidate", job.ID)
		}
	}
}

func TestHighScoreMatchesEmitEvents(t *testing.T) {
	strong := floatPtr(5)
	profiles := &stubProfiles{
		location:        &Location{Latitude: 40.7128, Longitude: -74.0060},
		industryJobs:    5,
		subcategoryJobs: 3,
		totalJobs:       20,
		rating:          strong,
	}
	emitter := &recordingEmitter{}
	o := newTestOrchestrator(profiles, emitter)

	results := o.MatchJobsToUsers(context.Background(), []*Job{testJob()}, []*User{testUser()})
	if len(results["job-1"]) != 1 {
		t.Fatalf("expected one match, got %v", results["job-1"])
	}

	if len(emitter.events) != 1 {
		t.Fatalf("a score above the threshold must emit one event, got %d", len(emitter.events))
	}
	event := emitter.events[0]
	if event.UserID != "user-1" || event.JobID != "job-1" || event.Score <= 0.7 {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestMediocreMatchesEmitNothing(t *testing.T) {
	profiles := &rankedProfiles{jobsByUser: map[string]int{"user-1": 4}}
	emitter := &recordingEmitter{}
	o := newTestOrchestrator(profiles, emitter)

	o.MatchJobsToUsers(context.Background(), []*Job{testJob()}, []*User{testUser()})
	if len(emitter.events) != 0 {
		t.Fatalf("low scores must not emit events, got %v", emitter.events)
	}
}

func TestMatchUsersToJobsMirrorsJobView(t *testing.T) {
	profiles := &rankedProfiles{jobsByUser: map[string]int{"user-1": 10}}
	o := newTestOrchestrator(profiles, nil)

	jobs := []*Job{
		{ID: "job-a", Title: "Painter", IndustryID: "industry-1"},
		{ID: "job-b", Title: "Plumber", IndustryID: "industry-1"},
	}
	results := o.MatchUsersToJobs(context.Background(), []*User{testUser()}, jobs)

	matches, ok := results["user-1"]
	if !ok {
		t.Fatal("expected an entry for the user")
	}
	if len(matches) != 2 {
		t.Fatalf("expected both jobs matched, got %v", matches)
	}
	for _, match := range matches {
		if match.UserID != "user-1" || match.JobTitle == "" {
			t.Fatalf("incomplete match record: %+v", match)
		}
	}
}
