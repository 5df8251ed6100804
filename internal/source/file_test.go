package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeJobsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "jobs.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write jobs file: %v", err)
	}
	return path
}

func TestFileFetcher(t *testing.T) {
	t.Parallel()

	path := writeJobsFile(t, `[
		{"external_id": "j-1", "title": "Backend Developer", "company": "Acme", "skills_required": ["Go", "SQL"]},
		{"external_id": "j-2", "title": "Data Engineer", "company": "Initech"}
	]`)

	records, err := NewFileFetcher(path).FetchJobs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ExternalID != "j-1" || records[0].Title != "Backend Developer" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if len(records[0].SkillsRequired) != 2 {
		t.Fatalf("skills not parsed: %v", records[0].SkillsRequired)
	}
}

func TestFileFetcherRejectsIncompleteRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "missing external id", content: `[{"title": "Backend Developer"}]`},
		{name: "missing title", content: `[{"external_id": "j-1"}]`},
		{name: "null record", content: `[null]`},
		{name: "not an array", content: `{"external_id": "j-1"}`},
		{name: "invalid json", content: `[{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeJobsFile(t, tt.content)
			if _, err := NewFileFetcher(path).FetchJobs(context.Background()); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestFileFetcherMissingFile(t *testing.T) {
	t.Parallel()

	f := NewFileFetcher(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := f.FetchJobs(context.Background()); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestFileFetcherEmptyArray(t *testing.T) {
	t.Parallel()

	path := writeJobsFile(t, `[]`)
	records, err := NewFileFetcher(path).FetchJobs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
