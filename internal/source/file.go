package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spigell/job-radar/internal/job"
)

// FileFetcher reads job records from a JSON file holding an array of
// records. Useful for piping scraper output into the store without coupling
// the matcher to any scraping code.
type FileFetcher struct {
	path string
}

func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

func (f *FileFetcher) FetchJobs(_ context.Context) ([]*job.Record, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}

	var records []*job.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse jobs file %q: %w", f.path, err)
	}

	for i, rec := range records {
		if rec == nil || rec.ExternalID == "" || rec.Title == "" {
			return nil, fmt.Errorf("jobs file %q: record %d is missing external_id or title", f.path, i)
		}
	}

	return records, nil
}
