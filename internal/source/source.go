// Package source defines the acquisition boundary. Scraping itself lives
// outside this tool; anything that can produce job records can feed the
// store through the Fetcher contract.
package source

import (
	"context"

	"github.com/spigell/job-radar/internal/job"
)

// Fetcher supplies raw job records from some acquisition source.
type Fetcher interface {
	FetchJobs(ctx context.Context) ([]*job.Record, error)
}
