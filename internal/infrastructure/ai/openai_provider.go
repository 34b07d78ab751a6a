package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"GoldEater/internal/domain/helper"
	"GoldEater/internal/domain/model"
)

// OpenAIProvider は ChatGPT (Chat Completions API) でスキャンを行う
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
	builder     scanBuilder
}

// NewOpenAIProvider は新しいOpenAIProviderを作成
func NewOpenAIProvider(opts Options) *OpenAIProvider {
	opts.applyDefaults("gpt-4o-2024-08-06")

	clientCfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientCfg.BaseURL = opts.BaseURL
	}
	clientCfg.HTTPClient = opts.HTTPClient

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		builder:     newScanBuilder(model.PlatformChatGPT, opts),
	}
}

// Platform implements repository.ScanProvider
func (p *OpenAIProvider) Platform() string {
	return model.PlatformChatGPT
}

// Scan implements repository.ScanProvider
func (p *OpenAIProvider) Scan(ctx context.Context, item model.WorkItem) (*model.ScanOutcome, error) {
	userPrompt := helper.BuildWorkItemPrompt(item)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: helper.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, model.NewProviderError(model.PlatformChatGPT, 0, errors.New("empty choices in response"))
	}

	return p.builder.build(item, userPrompt, completion{
		Content: resp.Choices[0].Message.Content,
		Tokens:  intPtr(resp.Usage.TotalTokens),
	}), nil
}

// classifyOpenAIError はSDKのエラーをHTTPステータスで分類する
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return model.NewProviderError(model.PlatformChatGPT, apiErr.HTTPStatusCode,
			fmt.Errorf("chat completion: %s", apiErr.Message))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return model.NewProviderError(model.PlatformChatGPT, reqErr.HTTPStatusCode,
			fmt.Errorf("chat completion: %w", reqErr))
	}

	return model.NewProviderError(model.PlatformChatGPT, 0, fmt.Errorf("chat completion: %w", err))
}
