package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BetterCallFirewall/Revalidator/internal/limits"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config - единый объект конфигурации, создаётся один раз в main и передаётся в конструкторы
type Config struct {
	LLM     LLMConfig              `yaml:"llm"`
	Store   StoreConfig            `yaml:"store"`
	Scanner ScannerConfig          `yaml:"scanner"`
	HTTP    HTTPConfig             `yaml:"http"`
	Report  ReportConfig           `yaml:"report"`
	Server  ServerConfig           `yaml:"server"`
	Limits  *limits.AnalysisLimits `yaml:"limits"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"` // "googleai"
	Model    string `yaml:"model"`
	ApiKey   string `yaml:"apiKey"`
}

type StoreConfig struct {
	Kind      string `yaml:"kind"` // "memory", "sqlite", "redis"
	DSN       string `yaml:"dsn"`
	OutputDir string `yaml:"outputDir"` // fallback file sink
}

type ScannerConfig struct {
	Binary         string        `yaml:"binary"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxTargetBytes int           `yaml:"maxTargetBytes"`
	PDFToText      string        `yaml:"pdfToText"`
}

type HTTPConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	UserAgent   string        `yaml:"userAgent"`
	Concurrency int           `yaml:"concurrency"`
}

type ReportConfig struct {
	Language string `yaml:"language"` // "en" или "es"
}

type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// SupportedLanguages - языки итогового отчёта
var SupportedLanguages = []string{"en", "es"}

// Default возвращает конфиг со значениями по умолчанию
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "googleai",
			Model:    "googleai/gemini-2.5-flash",
		},
		Store: StoreConfig{
			Kind:      StoreSQLite,
			DSN:       "revalidator.db",
			OutputDir: "results",
		},
		Scanner: ScannerConfig{
			Binary:         "semgrep",
			Timeout:        300 * time.Second,
			MaxTargetBytes: 1_000_000,
			PDFToText:      "pdftotext",
		},
		HTTP: HTTPConfig{
			Timeout:     30 * time.Second,
			UserAgent:   "VulnerabilityValidator/1.0",
			Concurrency: 4,
		},
		Report: ReportConfig{
			Language: "en",
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Limits: limits.DefaultAnalysisLimits(),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

// LoadFile читает YAML поверх значений по умолчанию
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Limits == nil {
		cfg.Limits = limits.DefaultAnalysisLimits()
	}
	return cfg, nil
}

// Load собирает конфиг: defaults -> YAML -> .env -> окружение.
// Отсутствие .env не ошибка.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.LLM.Provider = getEnvOrDefault("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnvOrDefault("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.ApiKey = getEnvOrDefault("API_KEY", cfg.LLM.ApiKey)

	cfg.Store.Kind = getEnvOrDefault("STORE_KIND", cfg.Store.Kind)
	cfg.Store.DSN = getEnvOrDefault("STORE_DSN", cfg.Store.DSN)
	cfg.Store.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.Store.OutputDir)

	cfg.Scanner.Binary = getEnvOrDefault("SEMGREP_BIN", cfg.Scanner.Binary)
	cfg.Scanner.Timeout = getDurationOrDefault("SEMGREP_TIMEOUT", cfg.Scanner.Timeout)
	cfg.Scanner.PDFToText = getEnvOrDefault("PDFTOTEXT_BIN", cfg.Scanner.PDFToText)

	cfg.HTTP.Timeout = getDurationOrDefault("NETWORK_TIMEOUT", cfg.HTTP.Timeout)
	cfg.HTTP.Concurrency = getIntOrDefault("DYNAMIC_CONCURRENCY", cfg.HTTP.Concurrency)

	cfg.Report.Language = getEnvOrDefault("REPORT_LANGUAGE", cfg.Report.Language)
	cfg.Server.ListenAddr = getEnvOrDefault("LISTEN_ADDR", cfg.Server.ListenAddr)

	return cfg, nil
}

// Validate проверяет значения, без которых пайплайн не стартует
func (c *Config) Validate() error {
	if !IsSupportedLanguage(c.Report.Language) {
		return fmt.Errorf("unsupported report language %q (supported: en, es)", c.Report.Language)
	}
	switch c.Store.Kind {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind != StoreMemory && c.Store.DSN == "" {
		return errors.New("store dsn is required for persistent stores")
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("http timeout must be positive")
	}
	if c.Scanner.Timeout <= 0 {
		return errors.New("scanner timeout must be positive")
	}
	if c.HTTP.Concurrency <= 0 {
		return errors.New("http concurrency must be positive")
	}
	return limits.NewLimiter(c.Limits).ValidateLimits()
}

func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
