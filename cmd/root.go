package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/config"
	"github.com/BetterCallFirewall/Revalidator/internal/llm"
	"github.com/BetterCallFirewall/Revalidator/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Version = "0.1.0"
	rootCmd *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:           "revalidator",
		Short:         "Validate and triage vulnerability claims from pentest reports",
		Long:          "Revalidator checks each claim of a security report against source code (semgrep) and a live target, then triages the combined evidence.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(viper.GetString("log-level"), viper.GetBool("log-json"))
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Log as JSON instead of console output")
	flags.String("store", "", "Store kind: memory, sqlite or redis")
	flags.String("store-dsn", "", "Store DSN (sqlite file path or redis URL)")
	flags.String("lang", "", "Report language (en, es)")
	flags.String("model", "", "LLM model name")
	for _, name := range []string{"config", "log-level", "log-json", "store", "store-dsn", "lang", "model"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	// REVAL_STORE, REVAL_LOG_LEVEL, ...
	viper.SetEnvPrefix("REVAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("❌ revalidator failed")
	}
}

func setupLogging(level string, asJSON bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if !asJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// loadConfig: defaults -> YAML -> .env -> env -> флаги
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}

	if v := viper.GetString("store"); v != "" {
		cfg.Store.Kind = v
	}
	if v := viper.GetString("store-dsn"); v != "" {
		cfg.Store.DSN = v
	}
	if v := viper.GetString("lang"); v != "" {
		cfg.Report.Language = v
	}
	if v := viper.GetString("model"); v != "" {
		cfg.LLM.Model = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore: недоступное хранилище - фатально, результаты некуда писать
func openStore(ctx context.Context, cfg *config.Config) storage.DocumentStore {
	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("kind", cfg.Store.Kind).Msg("❌ Assessment store is not available")
	}
	return store
}

func newReasoner(ctx context.Context, cfg *config.Config) llm.Reasoner {
	if cfg.LLM.ApiKey == "" {
		log.Warn().Msg("⚠️ No API key configured, every stage runs in fallback mode")
		return llm.Unavailable{}
	}
	return llm.NewGenkitReasoner(ctx, cfg.LLM.ApiKey, cfg.LLM.Model)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("revalidator", Version)
		},
	}
}
