package generator

import (
	"fmt"
	"os"
	"strings"
)

// Config holds generator configuration
type Config struct {
	Provider string
	APIKey   string
	Model    string
}

// New creates a generator with explicit configuration
func New(cfg Config) (Generator, error) {
	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvAnthropicAPIKey)
		}
		return &LLMGenerator{
			client:       newAnthropicClient(cfg.APIKey, cfg.Model),
			providerName: ProviderAnthropic,
			modelName:    orDefault(cfg.Model, DefaultAnthropicModel),
		}, nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
		}
		return &LLMGenerator{
			client:       newOpenAIClient(cfg.APIKey, cfg.Model),
			providerName: ProviderOpenAI,
			modelName:    orDefault(cfg.Model, DefaultOpenAIModel),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, cfg.Provider)
	}
}

// NewFromEnv creates a generator based on environment variables
// Priority:
// 1. DRAFTFORGE_GENERATOR_PROVIDER (anthropic, openai)
// 2. Check for API keys: ANTHROPIC_API_KEY, OPENAI_API_KEY
func NewFromEnv() (Generator, error) {
	provider := strings.ToLower(os.Getenv(EnvGeneratorProvider))
	anthropicKey := os.Getenv(EnvAnthropicAPIKey)
	openaiKey := os.Getenv(EnvOpenAIAPIKey)

	if provider != "" {
		switch provider {
		case ProviderAnthropic:
			return New(Config{Provider: ProviderAnthropic, APIKey: anthropicKey})
		case ProviderOpenAI:
			return New(Config{Provider: ProviderOpenAI, APIKey: openaiKey})
		default:
			return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderEnabled, provider)
		}
	}

	if anthropicKey != "" {
		return New(Config{Provider: ProviderAnthropic, APIKey: anthropicKey})
	}
	if openaiKey != "" {
		return New(Config{Provider: ProviderOpenAI, APIKey: openaiKey})
	}
	return nil, ErrNoProviderEnabled
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
