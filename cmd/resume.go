package cmd

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-radar/internal/job"
	"github.com/spigell/job-radar/internal/logger"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <profile.json>",
	Short: "Load a structured candidate profile and re-embed the resume vector",
	Long: `Load a structured candidate profile (skills, tech stack, target roles)
from a JSON file, store it as the new active resume version and overwrite the
persisted resume embedding. Existing matches are kept; the next run re-scores
against the new vector.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		loadResume(args[0])
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func loadResume(path string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Fatal("reading profile file", zap.Error(err))
	}

	var profile job.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		logger.Fatal("parsing profile file", zap.Error(err))
	}

	if len(profile.Skills) == 0 {
		logger.Fatal("profile has no skills", zap.String("file", path))
	}

	st, ix := openStores(config, logger)
	defer st.Close()

	profile.Filename = path

	id, err := st.SaveProfile(&profile)
	if err != nil {
		logger.Fatal("saving profile", zap.Error(err))
	}

	logger.Info("saved new resume version",
		zap.Int64("id", id),
		zap.Int("skills", len(profile.Skills)),
		zap.Strings("target_roles", profile.TargetRoles),
	)

	embedder, _ := buildProviders(ctx, config, logger)

	vec, err := embedder.Embed(ctx, profile.Text())
	if err != nil {
		logger.Fatal("embedding resume", zap.Error(err))
	}
	if len(vec) == 0 {
		logger.Fatal("embedding provider returned no vector for the resume")
	}

	if err := ix.SaveResumeVector(vec); err != nil {
		logger.Fatal("saving resume vector", zap.Error(err))
	}

	logger.Info("resume vector saved", zap.Int("dim", ix.Dim()))
}
