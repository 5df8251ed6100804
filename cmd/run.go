package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-radar/internal/embedding"
	"github.com/spigell/job-radar/internal/gaps"
	"github.com/spigell/job-radar/internal/gemini"
	"github.com/spigell/job-radar/internal/index"
	"github.com/spigell/job-radar/internal/logger"
	"github.com/spigell/job-radar/internal/pipeline"
	"github.com/spigell/job-radar/internal/rerank"
	"github.com/spigell/job-radar/internal/secrets"
	"github.com/spigell/job-radar/internal/store"
)

const (
	PromptShowMatches     = "Show top matches"
	PromptReportByCompany = "Report by company"
	PromptMatchesToFile   = "Dump matches to file"
	PromptMarkAllSeen     = "Mark all matches as seen"
	PromptExit            = "Exit"

	reviewLimit = 20
)

var errExit = errors.New("exit requested")

var reviewPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowMatches, PromptReportByCompany, PromptMatchesToFile, PromptMarkAllSeen, PromptExit},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the matching pipeline once and review the results",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "skip the interactive review loop after the run")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting job-radar", zap.String("version", version))

	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	st, ix := openStores(config, logger)
	defer st.Close()

	embedder, reranker := buildProviders(ctx, config, logger)

	pipe := pipeline.New(st, ix, embedder, reranker, gaps.New(st, logger), pipelineConfig(config.Matching), logger)

	summary := pipe.Run(ctx)

	// Unpersisted insertions die with the process otherwise.
	if err := ix.Flush(); err != nil {
		logger.Warn("final index flush", zap.Error(err))
	}

	if summary.Skipped {
		logger.Info("exiting", zap.String("reason", summary.SkipReason))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		return
	}

	for {
		_, action, err := reviewPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, st, config, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, st *store.Store, config *Config, logger *zap.Logger) error {
	threshold := pipelineConfig(config.Matching).Threshold

	matches, err := st.TopMatches(reviewLimit, threshold, "")
	if err != nil {
		return fmt.Errorf("loading top matches: %w", err)
	}

	switch action {
	case PromptShowMatches:
		logger.Info("current list of matches", zap.Int("count", len(matches)))
		for _, m := range matches {
			fmt.Printf("%.4f  %s  [%s]\n", m.Match.FinalScore, m.Job.Summary(), joinReasons(m.Match.Reasons))
		}
		return nil
	case PromptReportByCompany:
		report := make(map[string]int)
		for _, m := range matches {
			report[m.Job.Company]++
		}
		pretty, _ := json.MarshalIndent(report, "", "  ")
		logger.Info(string(pretty), zap.Int("matches count", len(matches)))
		return nil
	case PromptMatchesToFile:
		filename, err := dumpMatches(matches)
		if err != nil {
			return fmt.Errorf("dump matches to file: %w", err)
		}
		logger.Info("dumping matches to file", zap.String("filename", filename))
		return nil
	case PromptMarkAllSeen:
		for _, m := range matches {
			if err := st.MarkSeen(m.Job.ID); err != nil {
				return fmt.Errorf("mark match seen: %w", err)
			}
		}
		logger.Info("marked matches as seen", zap.Int("count", len(matches)))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// openStores opens the relational store and the vector index. Corrupt
// persisted state is fatal here: silently starting with a broken index would
// produce wrong rankings.
func openStores(config *Config, logger *zap.Logger) (*store.Store, *index.Index) {
	st, err := store.Open(config.Store.DBPath, logger)
	if err != nil {
		logger.Fatal("opening job store", zap.Error(err))
	}

	ix, err := index.Open(config.Store.IndexDir, config.Embedding.Dim, config.Store.FlushEvery, logger)
	if err != nil {
		logger.Fatal("opening vector index", zap.Error(err))
	}

	return st, ix
}

// buildProviders wires the embedding provider and, when enabled, the Gemini
// re-ranker. A misconfigured re-ranker is skipped with a warning; matching
// still works on embedding scores alone.
func buildProviders(ctx context.Context, config *Config, log *zap.Logger) (embedding.Provider, rerank.Reranker) {
	var geminiClient *gemini.Client

	needGemini := config.Embedding.Provider == "gemini" || (config.AI != nil && config.AI.Enabled)
	if needGemini {
		client, err := newGeminiClient(ctx, config, log)
		if err != nil {
			log.Warn("gemini is unavailable", zap.Error(err))
		} else {
			geminiClient = client
		}
	}

	var embedder embedding.Provider
	switch config.Embedding.Provider {
	case "gemini":
		if geminiClient == nil {
			log.Fatal("embedding provider is gemini but the gemini client could not be built")
		}
		embedder = embedding.NewGemini(geminiClient)
	case "", "ollama":
		embedder = embedding.NewOllama(
			config.Embedding.BaseURL,
			config.Embedding.Model,
			time.Duration(config.Embedding.Timeout)*time.Second,
		)
	default:
		log.Fatal("unsupported embedding provider", zap.String("provider", config.Embedding.Provider))
	}

	var reranker rerank.Reranker
	if config.AI != nil && config.AI.Enabled {
		if geminiClient == nil {
			log.Warn("skipping LLM re-ranking", zap.String("reason", "gemini client is not available"))
		} else {
			maxLogLen := 0
			if config.AI.Gemini != nil {
				maxLogLen = config.AI.Gemini.MaxLogLength
			}
			rerankLogger := logger.WithCommonFields(log, "gemini", geminiClient.Model())
			reranker = rerank.NewGemini(geminiClient, rerankLogger, maxLogLen)
		}
	}

	return embedder, reranker
}

func newGeminiClient(ctx context.Context, config *Config, log *zap.Logger) (*gemini.Client, error) {
	if config.AI == nil || config.AI.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.AI.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	clientLogger := logger.WithCommonFields(log, "gemini", config.AI.Gemini.Model)

	return gemini.New(ctx, apiKey, config.AI.Gemini.Model, config.AI.Gemini.EmbedModel,
		config.AI.Gemini.MaxRetries, clientLogger)
}

func pipelineConfig(m *MatchingConfig) pipeline.Config {
	cfg := pipeline.Config{}
	if m == nil {
		return cfg
	}
	cfg.Threshold = m.Threshold
	cfg.TopK = m.TopK
	cfg.CoarseMargin = m.CoarseMargin
	cfg.RerankEnabled = true
	cfg.RerankMin = m.RerankMin
	cfg.RerankMax = m.RerankMax
	cfg.RerankWorkers = m.RerankWorkers
	cfg.RerankTimeout = time.Duration(m.RerankTimeout) * time.Second
	cfg.UnmatchedLimit = m.UnmatchedLimit
	return cfg
}

func dumpMatches(matches []*store.MatchedJob) (string, error) {
	raw, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", app+"-matches-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(raw); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "no reasons recorded"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
