package cmd

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-radar/internal/logger"
	"github.com/spigell/job-radar/internal/source"
	"github.com/spigell/job-radar/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <jobs.json>",
	Short: "Upsert scraped job postings from a JSON file into the store",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ingest(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int("max-age-days", 30, "soft-delete jobs not refreshed within this many days (0 disables)")
}

func ingest(cmd *cobra.Command, path string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st, err := store.Open(config.Store.DBPath, logger)
	if err != nil {
		logger.Fatal("opening job store", zap.Error(err))
	}
	defer st.Close()

	records, err := source.NewFileFetcher(path).FetchJobs(context.Background())
	if err != nil {
		logger.Fatal("fetching jobs", zap.Error(err))
	}

	created, refreshed := 0, 0
	for _, rec := range records {
		_, fresh, err := st.UpsertJob(rec)
		if err != nil {
			logger.Warn("upserting job", zap.String("external_id", rec.ExternalID), zap.Error(err))
			continue
		}
		if fresh {
			created++
		} else {
			refreshed++
		}
	}

	logger.Info("ingested jobs",
		zap.String("file", path),
		zap.Int("created", created),
		zap.Int("refreshed", refreshed),
	)

	maxAgeDays, _ := cmd.Flags().GetInt("max-age-days")
	if maxAgeDays > 0 {
		stale, err := st.Cleanup(time.Duration(maxAgeDays) * 24 * time.Hour)
		if err != nil {
			logger.Warn("cleaning up stale jobs", zap.Error(err))
			return
		}
		if stale > 0 {
			logger.Info("soft-deleted stale jobs", zap.Int64("count", stale), zap.Int("max_age_days", maxAgeDays))
		}
	}
}
