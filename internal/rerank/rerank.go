// Package rerank provides the optional LLM re-ranking step applied to
// borderline embedding scores.
package rerank

import "context"

// Request carries the summaries the re-ranker judges.
type Request struct {
	JobTitle        string
	JobCompany      string
	JobLocation     string
	JobDescription  string
	CandidateSkills []string
	EmbedScore      float64
}

// Result is the structured verdict of one re-rank call.
type Result struct {
	// Score is the LLM suitability score clamped to [0, 1].
	Score float64
	// Reasoning is a one-sentence rationale.
	Reasoning string
}

// Reranker scores a borderline job against the candidate. A non-nil error
// (timeout, malformed output) means "no re-rank result"; the pipeline falls
// back to the embedding score alone.
type Reranker interface {
	Rerank(ctx context.Context, req *Request) (*Result, error)
}
