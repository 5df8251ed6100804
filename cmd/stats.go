package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-radar/internal/logger"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store and index statistics",
	Run: func(_ *cobra.Command, _ []string) {
		showStats()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func showStats() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st, ix := openStores(config, logger)
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		logger.Fatal("loading store stats", zap.Error(err))
	}

	logger.Info("store stats",
		zap.Int("active_jobs", stats.ActiveJobs),
		zap.Int("total_matches", stats.TotalMatches),
		zap.Float64("avg_score", stats.AvgScore),
		zap.Strings("top_gaps", stats.TopGaps),
	)

	logger.Info("index stats",
		zap.Int("vectors", ix.Size()),
		zap.Int("dim", ix.Dim()),
		zap.Bool("has_resume_vector", ix.HasResumeVector()),
	)
}
