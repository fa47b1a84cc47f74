package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI    LLMProvider = "openai"
	ProviderYandex    LLMProvider = "yandex"
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderGemini    LLMProvider = "gemini"
)

type Config struct {
	// HTTP
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8000"`

	// LLM settings
	LLMProvider      LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string        `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string        `env:"YANDEX_FOLDER_ID"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string        `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-haiku-latest"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiModel      string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Routing
	ClassifierMode string `env:"CLASSIFIER_MODE" envDefault:"hybrid"`
	HistoryWindow  int    `env:"HISTORY_WINDOW" envDefault:"10"`
	ToolsEnabled   bool   `env:"TOOLS_ENABLED" envDefault:"true"`

	// Storage
	DBPath           string `env:"DB_PATH" envDefault:"data/chat.db"`
	PersonasSeedPath string `env:"PERSONAS_SEED_PATH"`
	LogFilePath      string `env:"LOG_FILE_PATH" envDefault:"logs/turns.jsonl"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Daily usage report, empty disables it
	ReportCron string `env:"REPORT_CRON" envDefault:"0 21 * * *"`

	// Telegram front-end
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.HistoryWindow <= 0 {
		return nil, fmt.Errorf("HISTORY_WINDOW must be positive, got %d", cfg.HistoryWindow)
	}
	return cfg, nil
}
