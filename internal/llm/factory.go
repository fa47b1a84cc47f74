package llm

import (
	"context"
	"fmt"
	"strings"

	"persona-chatter/internal/config"
)

// Factory creates LLM clients with consistent logic
type Factory struct {
	OpenaiAPIKey       string
	OpenaiBaseURL      string
	OpenaiModel        string
	OpenRouterReferrer string
	OpenRouterTitle    string
	YandexOAuthToken   string
	YandexFolderID     string
	AnthropicAPIKey    string
	AnthropicModel     string
	GeminiAPIKey       string
	GeminiModel        string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenaiAPIKey:       cfg.OpenAIAPIKey,
		OpenaiBaseURL:      cfg.OpenAIBaseURL,
		OpenaiModel:        cfg.OpenAIModel,
		OpenRouterReferrer: cfg.OpenRouterReferrer,
		OpenRouterTitle:    cfg.OpenRouterTitle,
		YandexOAuthToken:   cfg.YandexOAuthToken,
		YandexFolderID:     cfg.YandexFolderID,
		AnthropicAPIKey:    cfg.AnthropicAPIKey,
		AnthropicModel:     cfg.AnthropicModel,
		GeminiAPIKey:       cfg.GeminiAPIKey,
		GeminiModel:        cfg.GeminiModel,
	}
}

// CreateClient builds the client for provider. An empty model selects the
// configured default for that provider.
func (f *Factory) CreateClient(ctx context.Context, provider, model string) (Client, error) {
	switch config.LLMProvider(strings.ToLower(provider)) {
	case config.ProviderOpenAI:
		if f.OpenaiAPIKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		return NewOpenAI(f.OpenaiAPIKey, f.OpenaiBaseURL, pick(model, f.OpenaiModel), f.OpenRouterReferrer, f.OpenRouterTitle), nil
	case config.ProviderYandex:
		return NewYandex(f.YandexOAuthToken, f.YandexFolderID)
	case config.ProviderAnthropic:
		return NewAnthropic(f.AnthropicAPIKey, pick(model, f.AnthropicModel))
	case config.ProviderGemini:
		return NewGemini(ctx, f.GeminiAPIKey, pick(model, f.GeminiModel))
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}

func pick(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}
