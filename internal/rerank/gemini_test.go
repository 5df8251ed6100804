package rerank

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

type stubGenerator struct {
	response string
	err      error
	prompt   string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func sampleRequest() *Request {
	return &Request{
		JobTitle:        "Backend Developer",
		JobCompany:      "Acme",
		JobLocation:     "Remote",
		JobDescription:  "Build and run Go services.",
		CandidateSkills: []string{"Python", "Go"},
		EmbedScore:      0.58,
	}
}

func TestRerankParsesResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		response  string
		score     float64
		reasoning string
		wantErr   bool
	}{
		{
			name:      "plain json",
			response:  `{"score": 0.72, "reasoning": "solid overlap"}`,
			score:     0.72,
			reasoning: "solid overlap",
		},
		{
			name:      "fenced json",
			response:  "```json\n{\"score\": 0.61, \"reasoning\": \"ok\"}\n```",
			score:     0.61,
			reasoning: "ok",
		},
		{
			name:     "fenced without language tag",
			response: "```\n{\"score\": 0.5}\n```",
			score:    0.5,
		},
		{
			name:      "string score coerced",
			response:  `{"score": "0.44", "reasoning": "meh"}`,
			score:     0.44,
			reasoning: "meh",
		},
		{
			name:     "score above one clamped",
			response: `{"score": 7.5}`,
			score:    1,
		},
		{
			name:     "negative score clamped",
			response: `{"score": -0.2}`,
			score:    0,
		},
		{
			name:     "not json",
			response: "I think this job is a good fit.",
			wantErr:  true,
		},
		{
			name:     "json without score",
			response: `{"reasoning": "no verdict"}`,
			wantErr:  true,
		},
		{
			name:     "unparseable score",
			response: `{"score": "maybe"}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := &stubGenerator{response: tt.response}
			r := NewGemini(gen, zap.NewNop(), 0)

			result, err := r.Rerank(context.Background(), sampleRequest())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %+v", result)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Score != tt.score {
				t.Fatalf("expected score %v, got %v", tt.score, result.Score)
			}
			if result.Reasoning != tt.reasoning {
				t.Fatalf("expected reasoning %q, got %q", tt.reasoning, result.Reasoning)
			}
		})
	}
}

func TestRerankPromptContents(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: `{"score": 0.5}`}
	r := NewGemini(gen, zap.NewNop(), 0)

	if _, err := r.Rerank(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Python, Go",
		"Backend Developer at Acme, Remote",
		"Build and run Go services.",
		"0.58",
	} {
		if !strings.Contains(gen.prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, gen.prompt)
		}
	}
	if strings.Contains(gen.prompt, "{{") {
		t.Fatalf("prompt still carries placeholders:\n%s", gen.prompt)
	}
}

func TestRerankPromptTruncation(t *testing.T) {
	t.Parallel()

	req := sampleRequest()
	req.JobDescription = strings.Repeat("x", 1000)
	req.CandidateSkills = nil
	for i := 0; i < 20; i++ {
		req.CandidateSkills = append(req.CandidateSkills, "quarkus")
	}

	gen := &stubGenerator{response: `{"score": 0.5}`}
	r := NewGemini(gen, zap.NewNop(), 0)

	if _, err := r.Rerank(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(gen.prompt, strings.Repeat("x", 401)) {
		t.Fatal("description not truncated in prompt")
	}
	if got := strings.Count(gen.prompt, "quarkus"); got != maxSkillsInPrompt {
		t.Fatalf("expected %d skills in prompt, got %d", maxSkillsInPrompt, got)
	}
}

func TestRerankGeneratorError(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("quota exceeded")}
	r := NewGemini(gen, zap.NewNop(), 0)

	if _, err := r.Rerank(context.Background(), sampleRequest()); err == nil {
		t.Fatal("generator errors must propagate")
	}
}

func TestRerankNilRequest(t *testing.T) {
	t.Parallel()

	r := NewGemini(&stubGenerator{}, zap.NewNop(), 0)
	if _, err := r.Rerank(context.Background(), nil); err == nil {
		t.Fatal("nil request must be rejected")
	}
}
