package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "job-radar"
)

type Config struct {
	Store     *StoreConfig     `mapstructure:"store"`
	Matching  *MatchingConfig  `mapstructure:"matching"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type StoreConfig struct {
	DBPath     string `mapstructure:"db-path"`
	IndexDir   string `mapstructure:"index-dir"`
	FlushEvery int    `mapstructure:"flush-every"`
}

type MatchingConfig struct {
	Threshold      float64 `mapstructure:"threshold"`
	TopK           int     `mapstructure:"top-k"`
	CoarseMargin   float64 `mapstructure:"coarse-margin"`
	RerankMin      float64 `mapstructure:"rerank-min"`
	RerankMax      float64 `mapstructure:"rerank-max"`
	RerankWorkers  int     `mapstructure:"rerank-workers"`
	RerankTimeout  int     `mapstructure:"rerank-timeout-seconds"`
	UnmatchedLimit int     `mapstructure:"unmatched-limit"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Dim      int    `mapstructure:"dim"`
	BaseURL  string `mapstructure:"base-url"`
	Timeout  int    `mapstructure:"timeout-seconds"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	EmbedModel   string `mapstructure:"embed-model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-radar indexes scraped job postings and matches them against your resume",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-radar.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("store.db-path", "data/job-radar.db")
	viper.SetDefault("store.index-dir", "data/index")
	viper.SetDefault("embedding.provider", "ollama")
	viper.SetDefault("embedding.dim", 768)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
		viper.SetConfigType("yaml")
	}

	// A missing default config is fine, defaults cover it. An explicit or
	// unparseable config file is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Store == nil {
		config.Store = &StoreConfig{}
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.Embedding == nil {
		config.Embedding = &EmbeddingConfig{}
	}

	return config, nil
}
