package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"GoldEater/internal/domain/helper"
	"GoldEater/internal/domain/model"
)

// PerplexityProvider はPerplexity APIでスキャンを行う。応答の引用URLを結果に付与する。
type PerplexityProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	httpClient  *http.Client
	builder     scanBuilder
}

// NewPerplexityProvider は新しいPerplexityProviderを作成
func NewPerplexityProvider(opts Options) *PerplexityProvider {
	opts.applyDefaults("llama-3.1-sonar-large-128k-online")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.perplexity.ai"
	}
	return &PerplexityProvider{
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: opts.Temperature,
		httpClient:  opts.HTTPClient,
		builder:     newScanBuilder(model.PlatformPerplexity, opts),
	}
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model           string              `json:"model"`
	Messages        []perplexityMessage `json:"messages"`
	Temperature     float32             `json:"temperature"`
	ReturnCitations bool                `json:"return_citations"`
}

type perplexityResponse struct {
	Choices []struct {
		Message perplexityMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Usage     *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Platform implements repository.ScanProvider
func (p *PerplexityProvider) Platform() string {
	return model.PlatformPerplexity
}

// Scan implements repository.ScanProvider
func (p *PerplexityProvider) Scan(ctx context.Context, item model.WorkItem) (*model.ScanOutcome, error) {
	userPrompt := helper.BuildWorkItemPrompt(item)

	reqBody, err := json.Marshal(perplexityRequest{
		Model: p.model,
		Messages: []perplexityMessage{
			{Role: "system", Content: helper.SystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:     p.temperature,
		ReturnCitations: true,
	})
	if err != nil {
		return nil, model.NewProviderError(model.PlatformPerplexity, http.StatusBadRequest, fmt.Errorf("リクエストのシリアライズに失敗: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, model.NewProviderError(model.PlatformPerplexity, http.StatusBadRequest, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, model.NewProviderError(model.PlatformPerplexity, 0, fmt.Errorf("APIリクエストに失敗: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewProviderError(model.PlatformPerplexity, 0, fmt.Errorf("レスポンスの読み取りに失敗: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewProviderError(model.PlatformPerplexity, resp.StatusCode, fmt.Errorf("API呼び出しエラー: %s", truncate(body, 300)))
	}

	var pr perplexityResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, model.NewProviderError(model.PlatformPerplexity, resp.StatusCode, fmt.Errorf("レスポンスのパースに失敗: %w", err))
	}
	if len(pr.Choices) == 0 {
		return nil, model.NewProviderError(model.PlatformPerplexity, resp.StatusCode, fmt.Errorf("有効なレスポンスが生成されませんでした"))
	}

	c := completion{
		Content:   pr.Choices[0].Message.Content,
		Citations: pr.Citations,
	}
	if c.Citations == nil {
		c.Citations = []string{}
	}
	if pr.Usage != nil {
		c.Tokens = intPtr(pr.Usage.TotalTokens)
	}
	return p.builder.build(item, userPrompt, c), nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
