package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/ai"
	"github.com/tsucess/paeshift-backend-sub004/internal/logger"
	"github.com/tsucess/paeshift-backend-sub004/internal/matching"
	"github.com/tsucess/paeshift-backend-sub004/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Explainer generates match summaries through a Gemini content generator.
type Explainer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExplainer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Explainer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Explainer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Explainer) Explain(ctx context.Context, job *matching.Job, user *matching.User, score *matching.MatchScore) (*ai.MatchSummary, error) {
	if job == nil || user == nil || score == nil {
		return nil, fmt.Errorf("job, user and score are required")
	}

	jobJSON, err := json.MarshalIndent(map[string]any{
		"id":          job.ID,
		"title":       job.Title,
		"industry":    job.IndustryID,
		"subcategory": job.SubcategoryID,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	userJSON, err := json.MarshalIndent(map[string]any{
		"id":       user.ID,
		"username": user.Username,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal user payload: %w", err)
	}

	scoresJSON, err := json.MarshalIndent(score.Components, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scores payload: %w", err)
	}

	prompt := buildPrompt(string(jobJSON), string(userJSON), string(scoresJSON))

	zlog := logger.WithFields(e.logger, logger.StringFields(
		logger.StringField{Key: "job_id", Value: job.ID},
		logger.StringField{Key: "user_id", Value: user.ID},
	)...)

	zlog.Debug("gemini explain request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	zlog.Debug("gemini explain response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	summary, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	summary.Raw = raw
	return summary, nil
}

func buildPrompt(jobJSON, userJSON, scoresJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Job:\n{{JOB_JSON}}\n\nCandidate:\n{{USER_JSON}}\n\nScores:\n{{SCORES_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{JOB_JSON}}", jobJSON)
	prompt = strings.ReplaceAll(prompt, "{{USER_JSON}}", userJSON)
	prompt = strings.ReplaceAll(prompt, "{{SCORES_JSON}}", scoresJSON)
	return prompt
}

func parseResponse(raw string) (*ai.MatchSummary, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	summary := coerceString(data["summary"])
	if summary == "" {
		return nil, fmt.Errorf("gemini response has no summary")
	}

	var highlights []string
	if items, ok := data["highlights"].([]any); ok {
		for _, item := range items {
			if text := coerceString(item); text != "" {
				highlights = append(highlights, text)
			}
		}
	}

	return &ai.MatchSummary{
		Summary:    summary,
		Highlights: highlights,
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
