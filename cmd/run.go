package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/activity"
	"github.com/tsucess/paeshift-backend-sub004/internal/ai"
	"github.com/tsucess/paeshift-backend-sub004/internal/ai/gemini"
	"github.com/tsucess/paeshift-backend-sub004/internal/logger"
	"github.com/tsucess/paeshift-backend-sub004/internal/matching"
	"github.com/tsucess/paeshift-backend-sub004/internal/secrets"
	"github.com/tsucess/paeshift-backend-sub004/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one matching pass over open jobs and active workers",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("job-limit", 0, "maximum number of open jobs to match (config wins when unset)")
	runCmd.Flags().Int("user-limit", 0, "maximum number of workers to match (config wins when unset)")

	viper.BindPFlag("matching.job-limit", runCmd.Flags().Lookup("job-limit"))
	viper.BindPFlag("matching.user-limit", runCmd.Flags().Lookup("user-limit"))
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	zlog.Info("starting the matcher", zap.String("version", version))

	pretty, _ := json.MarshalIndent(config, "", "  ")
	zlog.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config.Database == nil || config.Database.DSN == "" {
		zlog.Fatal("a database dsn is required under database.dsn to load jobs and workers")
	}

	reader, err := storage.Open(config.Database.DSN)
	if err != nil {
		zlog.Fatal("connecting to the database", zap.Error(err))
	}
	defer reader.Close()

	jobLimit, userLimit := 0, 0
	if config.Matching != nil {
		jobLimit = config.Matching.JobLimit
		userLimit = config.Matching.UserLimit
	}

	jobs, err := reader.OpenJobs(ctx, jobLimit)
	if err != nil {
		zlog.Fatal("loading open jobs", zap.Error(err))
	}
	workers, err := reader.ActiveWorkers(ctx, userLimit)
	if err != nil {
		zlog.Fatal("loading active workers", zap.Error(err))
	}

	zlog.Info("loaded matching inputs",
		zap.Int("jobs", len(jobs)),
		zap.Int("workers", len(workers)),
	)

	engine := activity.NewEngine(reader, zlog)
	scorer := matching.NewScorer(reader, engine, zlog)
	orchestrator := matching.NewOrchestrator(scorer, &matching.LogEmitter{Logger: zlog}, zlog)

	results := orchestrator.MatchJobsToUsers(ctx, jobs, workers)

	matched := 0
	for jobID, candidates := range results {
		if len(candidates) == 0 {
			continue
		}
		matched++
		zlog.Info("job matched",
			zap.String("job_id", jobID),
			zap.Int("candidates", len(candidates)),
			zap.String("best_user", candidates[0].UserID),
			zap.Float64("best_score", candidates[0].Score),
		)
	}

	zlog.Info("matching pass finished",
		zap.Int("jobs_total", len(jobs)),
		zap.Int("jobs_with_candidates", matched),
	)

	explainer := buildExplainer(ctx, config, zlog)
	if explainer != nil {
		explainTopMatches(ctx, explainer, scorer, jobs, workers, results, zlog)
	}
}

// buildExplainer returns nil unless AI summaries are enabled and a key is
// configured; matching never depends on it.
func buildExplainer(ctx context.Context, config *Config, zlog *zap.Logger) ai.Explainer {
	if config.AI == nil || !config.AI.Enabled || config.AI.Gemini == nil {
		return nil
	}

	key, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.AI.Gemini.APIKey,
		File:  config.AI.Gemini.APIKeyFile,
	})
	if err != nil {
		zlog.Warn("ai summaries disabled", zap.Error(err))
		return nil
	}

	generator, err := gemini.NewGenerator(ctx, key, config.AI.Gemini.Model)
	if err != nil {
		zlog.Warn("ai summaries disabled", zap.Error(err))
		return nil
	}

	zlog.Info("ai match summaries enabled", zap.String(logger.FieldModel, generator.Model()))
	return gemini.NewExplainer(generator, zlog, config.AI.Gemini.MaxLogLength)
}

func explainTopMatches(ctx context.Context, explainer ai.Explainer, scorer *matching.Scorer, jobs []*matching.Job, workers []*matching.User, results map[string][]matching.JobMatch, zlog *zap.Logger) {
	jobsByID := make(map[string]*matching.Job, len(jobs))
	for _, job := range jobs {
		jobsByID[job.ID] = job
	}
	workersByID := make(map[string]*matching.User, len(workers))
	for _, worker := range workers {
		workersByID[worker.ID] = worker
	}

	for jobID, candidates := range results {
		if len(candidates) == 0 || candidates[0].Score <= 0.7 {
			continue
		}

		job := jobsByID[jobID]
		worker := workersByID[candidates[0].UserID]
		if job == nil || worker == nil {
			continue
		}

		score := scorer.MatchScore(ctx, job, worker)
		summary, err := explainer.Explain(ctx, job, worker, score)
		if err != nil {
			zlog.Warn("generating match summary failed",
				zap.String("job_id", jobID),
				zap.String("user_id", worker.ID),
				zap.Error(err),
			)
			continue
		}

		zlog.Info("match summary",
			zap.String("job_id", jobID),
			zap.String("user_id", worker.ID),
			zap.String("summary", summary.Summary),
			zap.Strings("highlights", summary.Highlights),
		)
	}
}
