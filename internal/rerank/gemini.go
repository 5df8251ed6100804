package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/job-radar/internal/util"
)

// contentGenerator is the slice of the Gemini client the re-ranker needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxSkillsInPrompt   = 12
	maxDescriptionRunes = 400
)

// Gemini re-ranks borderline jobs through a content generator.
type Gemini struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewGemini(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Gemini {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gemini{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (g *Gemini) Rerank(ctx context.Context, req *Request) (*Result, error) {
	if req == nil {
		return nil, fmt.Errorf("rerank request is required")
	}

	prompt := buildPrompt(req)

	g.logger.Debug("rerank request",
		zap.String("job", req.JobTitle),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, g.maxLogLen)),
	)

	raw, err := g.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("rerank response",
		zap.String("job", req.JobTitle),
		zap.String("response_preview", util.TruncateForLog(raw, g.maxLogLen)),
	)

	return parseResponse(raw)
}

func buildPrompt(req *Request) string {
	skills := req.CandidateSkills
	if len(skills) > maxSkillsInPrompt {
		skills = skills[:maxSkillsInPrompt]
	}

	desc := []rune(req.JobDescription)
	if len(desc) > maxDescriptionRunes {
		desc = desc[:maxDescriptionRunes]
	}

	summary := fmt.Sprintf("%s at %s, %s", req.JobTitle, req.JobCompany, req.JobLocation)

	prompt := strings.ReplaceAll(promptTemplate, "{{CANDIDATE_SKILLS}}", strings.Join(skills, ", "))
	prompt = strings.ReplaceAll(prompt, "{{JOB_SUMMARY}}", summary)
	prompt = strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION}}", string(desc))
	prompt = strings.ReplaceAll(prompt, "{{EMBED_SCORE}}", fmt.Sprintf("%.2f", req.EmbedScore))
	return prompt
}

func parseResponse(raw string) (*Result, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse rerank response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		return nil, fmt.Errorf("rerank response has no usable score: %s", cleaned)
	}

	// Out-of-range scores are clamped rather than refused; models drift.
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return &Result{
		Score:     score,
		Reasoning: coerceString(data["reasoning"]),
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

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
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
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
