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

const anthropicVersion = "2023-06-01"

// ClaudeProvider はAnthropic Messages APIでスキャンを行う
type ClaudeProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	maxTokens   int
	httpClient  *http.Client
	builder     scanBuilder
}

// NewClaudeProvider は新しいClaudeProviderを作成
func NewClaudeProvider(opts Options) *ClaudeProvider {
	opts.applyDefaults("claude-3-opus-20240229")
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.anthropic.com"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	return &ClaudeProvider{
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  opts.HTTPClient,
		builder:     newScanBuilder(model.PlatformClaude, opts),
	}
}

// ClaudeRequest はMessages APIへのリクエスト構造体
type ClaudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system"`
	Temperature float32         `json:"temperature"`
	Messages    []ClaudeMessage `json:"messages"`
}

// ClaudeMessage は会話メッセージ
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeResponse はMessages APIからのレスポンス構造体
type ClaudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Platform implements repository.ScanProvider
func (p *ClaudeProvider) Platform() string {
	return model.PlatformClaude
}

// Scan implements repository.ScanProvider
func (p *ClaudeProvider) Scan(ctx context.Context, item model.WorkItem) (*model.ScanOutcome, error) {
	userPrompt := helper.BuildWorkItemPrompt(item)

	reqBody, err := json.Marshal(ClaudeRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		System:      helper.SystemPrompt,
		Temperature: p.temperature,
		Messages:    []ClaudeMessage{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return nil, model.NewProviderError(model.PlatformClaude, http.StatusBadRequest, fmt.Errorf("リクエストのシリアライズに失敗: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, model.NewProviderError(model.PlatformClaude, http.StatusBadRequest, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, model.NewProviderError(model.PlatformClaude, 0, fmt.Errorf("APIリクエストに失敗: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewProviderError(model.PlatformClaude, 0, fmt.Errorf("レスポンスの読み取りに失敗: %w", err))
	}
	// 529 (overloaded) は5xxとして transient に分類される
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewProviderError(model.PlatformClaude, resp.StatusCode, fmt.Errorf("API呼び出しエラー: %s", truncate(body, 300)))
	}

	var cr ClaudeResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, model.NewProviderError(model.PlatformClaude, resp.StatusCode, fmt.Errorf("レスポンスのパースに失敗: %w", err))
	}

	var text strings.Builder
	for _, block := range cr.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return p.builder.build(item, userPrompt, completion{
		Content: text.String(),
		Tokens:  intPtr(cr.Usage.InputTokens + cr.Usage.OutputTokens),
	}), nil
}
