package ai

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"GoldEater/internal/config"
	"GoldEater/internal/domain/model"
	"GoldEater/internal/domain/repository"
)

// NewProviders は設定から指定プラットフォームのプロバイダを作成する。
// APIキーが無いプラットフォームは ConfigError になる。
func NewProviders(ctx context.Context, cfg config.Config, platforms []string, logger *zap.Logger) ([]repository.ScanProvider, error) {
	providers := make([]repository.ScanProvider, 0, len(platforms))
	for _, platform := range platforms {
		p, err := newProvider(ctx, cfg, platform, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, nil
}

func newProvider(ctx context.Context, cfg config.Config, platform string, logger *zap.Logger) (repository.ScanProvider, error) {
	var pc config.ProviderConfig
	switch platform {
	case model.PlatformChatGPT:
		pc = cfg.Providers.OpenAI
	case model.PlatformPerplexity:
		pc = cfg.Providers.Perplexity
	case model.PlatformGemini:
		pc = cfg.Providers.Gemini
	case model.PlatformClaude:
		pc = cfg.Providers.Claude
	default:
		return nil, model.NewConfigError("scan.platforms", fmt.Sprintf("unknown platform %q", platform), nil)
	}
	if pc.APIKey == "" {
		return nil, model.NewConfigError("providers."+platform, "api_key is not set", nil)
	}

	opts := Options{
		APIKey:              pc.APIKey,
		BaseURL:             pc.BaseURL,
		Model:               pc.Model,
		Temperature:         pc.Temperature,
		MaxTokens:           pc.MaxTokens,
		Timeout:             time.Duration(pc.TimeoutSec) * time.Second,
		SystemPromptVersion: cfg.Scan.SystemPromptVersion,
		Logger:              logger.With(zap.String("platform", platform)),
	}

	switch platform {
	case model.PlatformChatGPT:
		return NewOpenAIProvider(opts), nil
	case model.PlatformPerplexity:
		return NewPerplexityProvider(opts), nil
	case model.PlatformGemini:
		gp, err := NewGeminiProvider(ctx, opts)
		if err != nil {
			return nil, err
		}
		return gp, nil
	default:
		return NewClaudeProvider(opts), nil
	}
}
