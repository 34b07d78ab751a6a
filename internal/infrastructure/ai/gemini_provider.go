package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"GoldEater/internal/domain/helper"
	"GoldEater/internal/domain/model"
)

// GeminiProvider はGoogle AI Studio (Gemini API) でスキャンを行う
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	builder     scanBuilder
}

// NewGeminiProvider は新しいGeminiProviderを作成。APIキーが無い場合は ConfigError。
func NewGeminiProvider(ctx context.Context, opts Options) (*GeminiProvider, error) {
	opts.applyDefaults("gemini-1.5-pro")
	if opts.APIKey == "" {
		return nil, model.NewConfigError("providers.gemini", "API key required for Google AI Studio", nil)
	}

	cfg := &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     opts.APIKey,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, model.NewConfigError("providers.gemini", "failed to create genai client", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		builder:     newScanBuilder(model.PlatformGemini, opts),
	}, nil
}

// Platform implements repository.ScanProvider
func (p *GeminiProvider) Platform() string {
	return model.PlatformGemini
}

// Scan implements repository.ScanProvider
func (p *GeminiProvider) Scan(ctx context.Context, item model.WorkItem) (*model.ScanOutcome, error) {
	userPrompt := helper.BuildWorkItemPrompt(item)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(helper.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(p.temperature),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, classifyGenAIError(err)
	}

	c := completion{Content: resp.Text()}
	if resp.UsageMetadata != nil {
		c.Tokens = intPtr(int(resp.UsageMetadata.TotalTokenCount))
	}
	return p.builder.build(item, userPrompt, c), nil
}

func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return model.NewProviderError(model.PlatformGemini, apiErr.Code, fmt.Errorf("generate content: %s", apiErr.Message))
	}
	return model.NewProviderError(model.PlatformGemini, 0, fmt.Errorf("generate content: %w", err))
}
