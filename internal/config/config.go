package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"FilingsScanner/internal/catalog"
)

const (
	defaultTimezone  = "America/Sao_Paulo"
	configPathEnv    = "FILINGS_SCANNER_CONFIG"
	databaseDriver   = "DATABASE_DRIVER"
	databaseDSNEnv   = "DATABASE_DSN"
	aiProviderEnv    = "AI_PROVIDER"
	aiBaseURLEnv     = "AI_BASE_URL"
	aiModelEnv       = "AI_MODEL"
	aiAPIKeyEnv      = "AI_API_KEY"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	storageRootEnv   = "STORAGE_ROOT"
	logLevelEnv      = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Server        ServerConfig       `yaml:"server"`
	Source        SourceConfig       `yaml:"source"`
	Download      DownloadConfig     `yaml:"download"`
	Storage       StorageConfig      `yaml:"storage"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Summarizer    SummarizerConfig   `yaml:"summarizer"`
	Notifications NotificationConfig `yaml:"notifications"`
	Catalog       CatalogConfig      `yaml:"catalog"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// DatabaseConfig selects the SQL dialect and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression" validate:"required"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return loadLocation(s.Timezone)
}

// ServerConfig configures the trigger endpoint.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// SourceConfig describes the exchange portal endpoints.
type SourceConfig struct {
	SearchURL          string        `yaml:"searchUrl" validate:"required,url"`
	DownloadURL        string        `yaml:"downloadUrl" validate:"required,url"`
	Referer            string        `yaml:"referer"`
	UserAgent          string        `yaml:"userAgent" validate:"required"`
	RecordsPath        string        `yaml:"recordsPath" validate:"required"`
	PageSize           int           `yaml:"pageSize" validate:"gt=0"`
	MaxPages           int           `yaml:"maxPages" validate:"gt=0"`
	FundType           string        `yaml:"fundType"`
	StatusFilter       string        `yaml:"statusFilter"`
	ExcludedCategories []string      `yaml:"excludedCategories"`
	Timezone           string        `yaml:"timezone"`
	Timeout            time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Location resolves the portal timezone used for delivery dates.
func (s SourceConfig) Location() *time.Location {
	return loadLocation(s.Timezone)
}

// DownloadConfig paces file acquisition.
type DownloadConfig struct {
	Delay   time.Duration `yaml:"delay" validate:"gte=0"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// StorageConfig points to the local directory holding downloaded filings.
type StorageConfig struct {
	Root string `yaml:"root" validate:"required"`
}

// PipelineConfig tunes stage execution.
type PipelineConfig struct {
	Workers         int    `yaml:"workers" validate:"gte=1"`
	MaxSummaryInput int    `yaml:"maxSummaryInput" validate:"gt=0"`
	TickerSuffix    string `yaml:"tickerSuffix"`
}

// SummarizerConfig selects and tunes the language model backend.
type SummarizerConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=ollama openai anthropic"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model" validate:"required"`
	APIKey      string        `yaml:"apiKey"`
	Prompt      string        `yaml:"prompt"`
	Temperature float64       `yaml:"temperature"`
	ContextSize int           `yaml:"contextSize"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram   TelegramConfig `yaml:"telegram"`
	Watchlist  []string       `yaml:"watchlist"`
	Disclaimer string         `yaml:"disclaimer"`
	LinkLabel  string         `yaml:"linkLabel"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIURL   string `yaml:"apiUrl" validate:"omitempty,url"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether enough data is present to send messages.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// CatalogConfig extends the built-in ticker catalog.
type CatalogConfig struct {
	Path    string          `yaml:"path"`
	Entries []catalog.Entry `yaml:"entries"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom is Load with an explicit file path; an empty path skips the file.
func LoadFrom(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate checks struct constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriver); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(aiProviderEnv); v != "" {
		c.Summarizer.Provider = v
	}
	if v := os.Getenv(aiBaseURLEnv); v != "" {
		c.Summarizer.Endpoint = v
	}
	if v := os.Getenv(aiModelEnv); v != "" {
		c.Summarizer.Model = v
	}
	if v := os.Getenv(aiAPIKeyEnv); v != "" {
		c.Summarizer.APIKey = v
	}

	if v := os.Getenv(storageRootEnv); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	c.Scheduler.location = loadLocation(c.Scheduler.Timezone)
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		return time.UTC
	}
	return loc
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: "filings.db"},
		Scheduler: SchedulerConfig{CronExpression: "0 */30 8-22 * * *", Timezone: defaultTimezone},
		Server:    ServerConfig{Addr: ":8080"},
		Source: SourceConfig{
			SearchURL:          "https://fnet.bmfbovespa.com.br/fnet/publico/pesquisarGerenciadorDocumentosDados",
			DownloadURL:        "https://fnet.bmfbovespa.com.br/fnet/publico/downloadDocumento",
			Referer:            "https://fnet.bmfbovespa.com.br/",
			UserAgent:          "Mozilla/5.0 (compatible; FilingsScanner/1.0; +https://fnet.bmfbovespa.com.br)",
			RecordsPath:        "data",
			PageSize:           100,
			MaxPages:           10,
			FundType:           "1",
			StatusFilter:       "A",
			ExcludedCategories: []string{"Regulamento"},
			Timezone:           defaultTimezone,
			Timeout:            20 * time.Second,
		},
		Download: DownloadConfig{Delay: time.Second, Timeout: 60 * time.Second},
		Storage:  StorageConfig{Root: "temp"},
		Pipeline: PipelineConfig{Workers: 1, MaxSummaryInput: 16000, TickerSuffix: "11"},
		Summarizer: SummarizerConfig{
			Provider:    "ollama",
			Endpoint:    "http://localhost:11434",
			Model:       "qwen3:latest",
			Temperature: 0.2,
			ContextSize: 8192,
			MaxTokens:   4096,
			Timeout:     60 * time.Second,
		},
		Notifications: NotificationConfig{
			Telegram:   TelegramConfig{APIURL: "https://api.telegram.org"},
			Watchlist:  []string{"LIFE11", "NAUI11"},
			LinkLabel:  "Acesse o relatório:",
			Disclaimer: "_ℹ️ Resumo gerado com IA e pode conter erros. Leia sempre o documento emitido pelo fundo. Esta não é uma recomendação de investimento._",
		},
	}
}
