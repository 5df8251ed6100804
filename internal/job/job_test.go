package job

import (
	"strings"
	"testing"
)

func TestRecordText(t *testing.T) {
	t.Parallel()

	rec := &Record{
		Title:          "Backend Developer",
		Company:        "Acme",
		Location:       "Remote",
		SkillsRequired: []string{"Go", "SQL"},
		Description:    "Build services.",
	}

	text := rec.Text()
	want := "Title: Backend Developer\n" +
		"Company: Acme\n" +
		"Location: Remote\n" +
		"Skills: Go, SQL\n" +
		"Description: Build services."
	if text != want {
		t.Fatalf("unexpected text:\n%s", text)
	}

	// Optional sections disappear instead of leaving empty lines.
	bare := &Record{Title: "T", Company: "C"}
	if strings.Contains(bare.Text(), "Skills:") || strings.Contains(bare.Text(), "Description:") {
		t.Fatalf("empty sections must be omitted:\n%s", bare.Text())
	}
}

func TestRecordTextTruncatesDescription(t *testing.T) {
	t.Parallel()

	rec := &Record{
		Title:       "T",
		Company:     "C",
		Description: strings.Repeat("é", 1000),
	}

	text := rec.Text()
	if got := strings.Count(text, "é"); got != 800 {
		t.Fatalf("expected description capped at 800 runes, counted %d", got)
	}
}

func TestRecordSummary(t *testing.T) {
	t.Parallel()

	rec := &Record{Title: "Backend Developer", Company: "Acme", Location: "Remote"}
	if got := rec.Summary(); got != "Backend Developer at Acme, Remote" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestRecordSkillSet(t *testing.T) {
	t.Parallel()

	rec := &Record{SkillsRequired: []string{" Go ", "SQL", "go", "", "Kafka"}}

	got := rec.SkillSet()
	want := []string{"go", "sql", "kafka"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestProfileSkillSet(t *testing.T) {
	t.Parallel()

	p := &Profile{
		Skills:    []string{"Python", " SQL "},
		TechStack: []string{"Docker", "python", ""},
	}

	set := p.SkillSet()
	if len(set) != 3 {
		t.Fatalf("expected 3 distinct skills, got %v", set)
	}
	for _, skill := range []string{"python", "sql", "docker"} {
		if _, ok := set[skill]; !ok {
			t.Fatalf("missing %q in %v", skill, set)
		}
	}
}

func TestProfileText(t *testing.T) {
	t.Parallel()

	p := &Profile{
		Skills:      []string{"Python"},
		TargetRoles: []string{"backend developer"},
		Summary:     "Five years building APIs.",
	}

	text := p.Text()
	for _, want := range []string{
		"Target roles: backend developer",
		"Skills: Python",
		"Summary: Five years building APIs.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Tech stack:") {
		t.Fatalf("empty tech stack must be omitted:\n%s", text)
	}
}
