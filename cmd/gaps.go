package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-radar/internal/gaps"
	"github.com/spigell/job-radar/internal/logger"
	"github.com/spigell/job-radar/internal/store"
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Show the most frequent skills required by matched jobs that you lack",
	Run: func(cmd *cobra.Command, _ []string) {
		showGaps(cmd)
	},
}

func init() {
	rootCmd.AddCommand(gapsCmd)

	gapsCmd.Flags().Int("limit", 15, "maximum number of gap entries to show")
}

func showGaps(cmd *cobra.Command) {
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

	limit, _ := cmd.Flags().GetInt("limit")

	entries, err := gaps.New(st, logger).Report(limit)
	if err != nil {
		logger.Fatal("loading skill gaps", zap.Error(err))
	}

	if len(entries) == 0 {
		logger.Info("no skill gaps recorded yet")
		return
	}

	for _, e := range entries {
		fmt.Printf("%4dx  %-30s %s\n", e.Frequency, e.Skill, e.Category)
	}
}
