package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-kratos/blades"
	"github.com/go-playground/validator/v10"

	"github.com/Sachinn-p/CHATSEC-SOC-Agent/config"
)

// builderFunc builds a blades.ModelProvider from a per-agent LLM config.
type builderFunc func(ctx context.Context, cfg *config.AgentLLMConfig) (blades.ModelProvider, error)

var builders = map[string]builderFunc{
	"openai":    buildOpenAI,
	"anthropic": buildAnthropic,
	"gemini":    buildGemini,
}

// Factory builds model providers from per-agent LLM configs.
//
// It applies defaults for optional fields, validates required fields, and
// dispatches to provider-specific builders.
type Factory struct {
	validate *validator.Validate
}

func NewFactory() *Factory {
	return &Factory{validate: validator.New()}
}

func (f *Factory) Build(ctx context.Context, cfg config.AgentLLMConfig) (blades.ModelProvider, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))

	if err := f.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate llm config: %w", err)
	}

	applyDefaults(&cfg)

	builder, ok := builders[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}

	return builder(ctx, &cfg)
}

func applyDefaults(cfg *config.AgentLLMConfig) {
	if cfg.Timeout == "" {
		cfg.Timeout = "60s"
	}
	if cfg.MaxTokens == nil {
		defaultMaxTokens := 2048
		cfg.MaxTokens = &defaultMaxTokens
	}
	if cfg.Temperature == nil {
		defaultTemperature := 0.7
		cfg.Temperature = &defaultTemperature
	}
}

// resolveAPIKey prefers the config value, then falls back to a comma-separated
// list of environment variable names.
func resolveAPIKey(cfg *config.AgentLLMConfig, envNames string) (string, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		for _, name := range strings.Split(envNames, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			apiKey = strings.TrimSpace(os.Getenv(name))
			if apiKey != "" {
				break
			}
		}
	}
	if apiKey == "" {
		return "", fmt.Errorf("%s api key not configured (api_key or %s)", cfg.Provider, envNames)
	}
	return apiKey, nil
}

func resolveBaseURL(cfg *config.AgentLLMConfig, defaultURL string) string {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return defaultURL
	}
	return cfg.BaseURL
}
