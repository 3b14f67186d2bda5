package matching

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// maxWorkers bounds the scoring pool; the effective size is min(maxWorkers, N).
const maxWorkers = 10

// Orchestrator distributes match scoring across a bounded worker pool.
// One task covers one job (or user) against the full counterpart set; a
// task failure yields an empty list for that key and never disturbs
// siblings.
type Orchestrator struct {
	scorer  *Scorer
	emitter Emitter
	logger  *zap.Logger
}

func NewOrchestrator(scorer *Scorer, emitter Emitter, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		scorer:  scorer,
		emitter: emitter,
		logger:  logger,
	}
}

// MatchJobsToUsers scores every job against every user and returns each
// job's candidates sorted by score descending. Zero and negative scores
// are excluded.
func (o *Orchestrator) MatchJobsToUsers(ctx context.Context, jobs []*Job, users []*User) map[string][]JobMatch {
	results := make(map[string][]JobMatch, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	lists := make([][]JobMatch, len(jobs))
	o.fanOut(len(jobs), func(i int) {
		lists[i] = o.matchJob(ctx, jobs[i], users)
	})

	for i, job := range jobs {
		if lists[i] == nil {
			lists[i] = []JobMatch{}
		}
		results[job.ID] = lists[i]
	}
	return results
}

// MatchUsersToJobs scores every user against every job and returns each
// user's jobs sorted by score descending.
func (o *Orchestrator) MatchUsersToJobs(ctx context.Context, users []*User, jobs []*Job) map[string][]UserMatch {
	results := make(map[string][]UserMatch, len(users))
	if len(users) == 0 {
		return results
	}

	lists := make([][]UserMatch, len(users))
	o.fanOut(len(users), func(i int) {
		lists[i] = o.matchUser(ctx, users[i], jobs)
	})

	for i, user := range users {
		if lists[i] == nil {
			lists[i] = []UserMatch{}
		}
		results[user.ID] = lists[i]
	}
	return results
}

// fanOut runs fn(i) for every index across the bounded pool. Panics are
// contained per task: the corresponding key keeps a nil (empty) result.
func (o *Orchestrator) fanOut(n int, fn func(i int)) {
	workers := maxWorkers
	if n < workers {
		workers = n
	}

	tasks := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				o.runTask(i, fn)
			}
		}()
	}

	for i := 0; i < n; i++ {
		tasks <- i
	}
	close(tasks)
	wg.Wait()
}

func (o *Orchestrator) runTask(i int, fn func(i int)) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("matching task failed",
				zap.Int("task", i),
				zap.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	fn(i)
}

func (o *Orchestrator) matchJob(ctx context.Context, job *Job, users []*User) []JobMatch {
	matches := make([]JobMatch, 0, len(users))
	for _, user := range users {
		score := o.scorer.MatchScore(ctx, job, user)
		if score.Score <= 0 {
			continue
		}
		matches = append(matches, JobMatch{
			UserID:   user.ID,
			Username: user.Username,
			Score:    score.Score,
			JobID:    job.ID,
			JobTitle: job.Title,
		})
		o.maybeEmit(ctx, user.ID, job.ID, score.Score)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

func (o *Orchestrator) matchUser(ctx context.Context, user *User, jobs []*Job) []UserMatch {
	matches := make([]UserMatch, 0, len(jobs))
	for _, job := range jobs {
		score := o.scorer.MatchScore(ctx, job, user)
		if score.Score <= 0 {
			continue
		}
		matches = append(matches, UserMatch{
			JobID:    job.ID,
			JobTitle: job.Title,
			Score:    score.Score,
			UserID:   user.ID,
			Username: user.Username,
		})
		o.maybeEmit(ctx, user.ID, job.ID, score.Score)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

func (o *Orchestrator) maybeEmit(ctx context.Context, userID, jobID string, score float64) {
	if o.emitter == nil || score <= eventThreshold {
		return
	}
	o.emitter.Emit(ctx, Event{UserID: userID, JobID: jobID, Score: score})
}
