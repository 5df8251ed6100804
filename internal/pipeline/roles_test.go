package pipeline

import (
	"strings"
	"testing"
)

func TestRoleAdjustment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		title      string
		roles      []string
		modifier   float64
		reasonPart string
	}{
		{
			name:       "bonus on target role substring",
			title:      "Senior Backend Developer (Go)",
			roles:      []string{"backend developer"},
			modifier:   0.15,
			reasonPart: "backend developer",
		},
		{
			name:       "first matching role wins",
			title:      "Backend Developer / Data Engineer",
			roles:      []string{"data engineer", "backend developer"},
			modifier:   0.15,
			reasonPart: "data engineer",
		},
		{
			name:     "case and whitespace insensitive",
			title:    "BACKEND DEVELOPER",
			roles:    []string{"  Backend Developer  "},
			modifier: 0.15,
		},
		{
			name:       "penalty on unrelated role term",
			title:      "Sales Executive",
			roles:      []string{"backend developer"},
			modifier:   -0.5,
			reasonPart: "sales",
		},
		{
			name:     "penalty without any target roles",
			title:    "HR Generalist",
			modifier: -0.5,
		},
		{
			name:     "opt-in suppresses penalty",
			title:    "Technical Sales Engineer",
			roles:    []string{"sales engineer"},
			modifier: 0.15, // the target role also matches, bonus wins
		},
		{
			name:     "opt-in without title match just neutralizes",
			title:    "Sales Operations",
			roles:    []string{"pre-sales consultant"},
			modifier: 0,
		},
		{
			name:     "neutral title",
			title:    "Software Engineer",
			roles:    []string{"backend developer"},
			modifier: 0,
		},
		{
			name:     "empty title",
			roles:    []string{"backend developer"},
			modifier: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			modifier, reason := roleAdjustment(tt.title, tt.roles)
			if modifier != tt.modifier {
				t.Fatalf("expected modifier %v, got %v (reason %q)", tt.modifier, modifier, reason)
			}
			if tt.reasonPart != "" && !strings.Contains(reason, tt.reasonPart) {
				t.Fatalf("expected reason containing %q, got %q", tt.reasonPart, reason)
			}
			if tt.modifier == 0 && reason != "" {
				t.Fatalf("neutral adjustment should carry no reason, got %q", reason)
			}
		})
	}
}
