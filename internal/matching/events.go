package matching

import (
	"context"

	"go.uber.org/zap"
)

// eventThreshold is the final score above which a match-found event is
// emitted for the notification collaborator.
const eventThreshold = 0.7

// Event announces a high-score match. Delivery is a collaborator concern;
// this core only computes and emits.
type Event struct {
	UserID string  `json:"user_id"`
	JobID  string  `json:"job_id"`
	Score  float64 `json:"score"`
}

// Emitter receives match-found events. Implementations must be safe for
// concurrent use; Emit is called from worker goroutines.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// LogEmitter is the default emitter: it logs events and nothing else.
type LogEmitter struct {
	Logger *zap.Logger
}

func (e *LogEmitter) Emit(_ context.Context, event Event) {
	if e.Logger == nil {
		return
	}
	e.Logger.Info("match found",
		zap.String("user_id", event.UserID),
		zap.String("job_id", event.JobID),
		zap.Float64("score", event.Score),
	)
}
