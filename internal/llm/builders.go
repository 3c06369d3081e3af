package llm

import (
	"context"

	"github.com/go-kratos/blades"
	"github.com/go-kratos/blades/contrib/anthropic"
	"github.com/go-kratos/blades/contrib/gemini"
	"github.com/go-kratos/blades/contrib/openai"
	"google.golang.org/genai"

	"github.com/Sachinn-p/CHATSEC-SOC-Agent/config"
)

func buildOpenAI(ctx context.Context, cfg *config.AgentLLMConfig) (blades.ModelProvider, error) {
	apiKey, err := resolveAPIKey(cfg, "OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	opts := openai.Config{
		APIKey:  apiKey,
		BaseURL: resolveBaseURL(cfg, "https://api.openai.com/v1"),
	}
	opts.MaxOutputTokens = int64(*cfg.MaxTokens)
	opts.Temperature = *cfg.Temperature

	return openai.NewModel(cfg.Model, opts), nil
}

func buildAnthropic(ctx context.Context, cfg *config.AgentLLMConfig) (blades.ModelProvider, error) {
	apiKey, err := resolveAPIKey(cfg, "ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}

	opts := anthropic.Config{
		APIKey:  apiKey,
		BaseURL: resolveBaseURL(cfg, "https://api.anthropic.com"),
	}
	opts.MaxOutputTokens = int64(*cfg.MaxTokens)
	opts.Temperature = *cfg.Temperature

	return anthropic.NewModel(cfg.Model, opts), nil
}

func buildGemini(ctx context.Context, cfg *config.AgentLLMConfig) (blades.ModelProvider, error) {
	apiKey, err := resolveAPIKey(cfg, "GEMINI_API_KEY,GOOGLE_API_KEY")
	if err != nil {
		return nil, err
	}

	var opts gemini.Config
	opts.ClientConfig = genai.ClientConfig{
		APIKey: apiKey,
	}
	opts.MaxOutputTokens = int32(*cfg.MaxTokens)
	opts.Temperature = float32(*cfg.Temperature)

	return gemini.NewModel(ctx, cfg.Model, opts)
}
