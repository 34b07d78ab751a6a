package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoldEater/internal/domain/helper"
	"GoldEater/internal/domain/model"
)

const recommendationsJSON = `{"recommendations":[{"name":"Bistro X","rank":1,"reasoning":"Great","vibe_tags":["Cosy"],"negative_flags":[]},{"name":"Cafe Y","rank":2}]}`

func testItem(platform string) model.WorkItem {
	return model.WorkItem{
		Cell:            model.GridCell{H3Index: "8abe0e35a4a7fff", CenterLat: -33.885, CenterLng: 151.215},
		District:        "surry_hills",
		DistrictDisplay: "Surry Hills",
		Platform:        platform,
		PromptType:      model.PromptGenericBest,
		TapNumber:       2,
		RunID:           "run-20240309-140507-abcdef12",
	}
}

func assertJob(t *testing.T, outcome *model.ScanOutcome, platform, modelVersion string) {
	t.Helper()
	job := outcome.Job
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "8abe0e35a4a7fff", job.H3Index)
	assert.Equal(t, platform, job.Platform)
	assert.Equal(t, modelVersion, job.ModelVersion)
	assert.Equal(t, "run-20240309-140507-abcdef12", job.RunID)
	assert.Equal(t, 2, job.TapNumber)
	assert.Equal(t, model.DefaultSystemPromptVersion, job.SystemPromptVersion)
	assert.Contains(t, job.UserPrompt, "(-33.885, 151.215) in Surry Hills, Sydney.")
	for _, r := range outcome.Results {
		assert.Equal(t, job.ID, r.JobID)
		assert.NotEmpty(t, r.ID)
	}
}

func TestOpenAIProvider_Scan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-2024-08-06", req["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": recommendationsJSON}}},
			"usage":   map[string]any{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider(Options{APIKey: "sk-test", BaseURL: server.URL})
	outcome, err := p.Scan(context.Background(), testItem(model.PlatformChatGPT))
	require.NoError(t, err)

	assertJob(t, outcome, model.PlatformChatGPT, "gpt-4o-2024-08-06")
	require.NotNil(t, outcome.Job.TokensUsed)
	assert.Equal(t, 150, *outcome.Job.TokensUsed)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "Bistro X", outcome.Results[0].RawName)
	assert.Equal(t, []string{"Cosy"}, outcome.Results[0].VibeTags)
	assert.Nil(t, outcome.Results[0].CitationCount)
}

func TestOpenAIProvider_ErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}))
			defer server.Close()

			p := NewOpenAIProvider(Options{APIKey: "sk-test", BaseURL: server.URL})
			_, err := p.Scan(context.Background(), testItem(model.PlatformChatGPT))
			require.Error(t, err)

			var pe *model.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tc.status, pe.StatusCode)
			assert.Equal(t, tc.transient, pe.IsTransient())
		})
	}
}

func TestPerplexityProvider_ScanWithCitations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer pplx-test", r.Header.Get("Authorization"))

		var req perplexityRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.ReturnCitations)
		assert.Equal(t, helper.SystemPrompt, req.Messages[0].Content)

		_, _ = io.WriteString(w, `{
			"choices": [{"message": {"role": "assistant", "content": `+strconvQuote(recommendationsJSON)+`}}],
			"citations": ["https://example.com/a", "https://example.com/b"]
		}`)
	}))
	defer server.Close()

	p := NewPerplexityProvider(Options{APIKey: "pplx-test", BaseURL: server.URL})
	outcome, err := p.Scan(context.Background(), testItem(model.PlatformPerplexity))
	require.NoError(t, err)

	assertJob(t, outcome, model.PlatformPerplexity, "llama-3.1-sonar-large-128k-online")
	assert.Nil(t, outcome.Job.TokensUsed)
	require.Len(t, outcome.Results, 2)
	for _, r := range outcome.Results {
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, r.CitationURLs)
		require.NotNil(t, r.CitationCount)
		assert.Equal(t, 2, *r.CitationCount)
	}
}

func TestPerplexityProvider_MalformedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices": [{"message": {"role": "assistant", "content": "Sorry, I cannot browse right now."}}], "usage": {"total_tokens": 12}}`)
	}))
	defer server.Close()

	p := NewPerplexityProvider(Options{APIKey: "k", BaseURL: server.URL})
	outcome, err := p.Scan(context.Background(), testItem(model.PlatformPerplexity))
	require.NoError(t, err)

	assert.Empty(t, outcome.Results)
	assert.NotEmpty(t, outcome.Job.ID)
	require.NotNil(t, outcome.Job.TokensUsed)
	assert.Equal(t, 12, *outcome.Job.TokensUsed)
}

func TestPerplexityProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewPerplexityProvider(Options{APIKey: "k", BaseURL: server.URL})
	_, err := p.Scan(context.Background(), testItem(model.PlatformPerplexity))

	assert.True(t, model.IsTransientError(err))
}

func TestClaudeProvider_Scan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "claude-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req ClaudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2048, req.MaxTokens)
		assert.Equal(t, helper.SystemPrompt, req.System)
		require.Len(t, req.Messages, 1)

		_, _ = io.WriteString(w, `{
			"content": [{"type": "text", "text": `+strconvQuote("```json\n"+recommendationsJSON+"\n```")+`}],
			"usage": {"input_tokens": 300, "output_tokens": 120}
		}`)
	}))
	defer server.Close()

	p := NewClaudeProvider(Options{APIKey: "claude-key", BaseURL: server.URL})
	outcome, err := p.Scan(context.Background(), testItem(model.PlatformClaude))
	require.NoError(t, err)

	assertJob(t, outcome, model.PlatformClaude, "claude-3-opus-20240229")
	require.NotNil(t, outcome.Job.TokensUsed)
	assert.Equal(t, 420, *outcome.Job.TokensUsed)
	assert.Len(t, outcome.Results, 2)
}

func TestClaudeProvider_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p := NewClaudeProvider(Options{APIKey: "k", BaseURL: url})
	_, err := p.Scan(context.Background(), testItem(model.PlatformClaude))

	var pe *model.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 0, pe.StatusCode)
	assert.True(t, pe.IsTransient())
}

func TestGeminiProvider_Scan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-pro:generateContent"), r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req, "systemInstruction")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": recommendationsJSON}}},
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 80, "candidatesTokenCount": 40, "totalTokenCount": 120},
		})
	}))
	defer server.Close()

	p, err := NewGeminiProvider(context.Background(), Options{APIKey: "gemini-key", BaseURL: server.URL})
	require.NoError(t, err)

	outcome, err := p.Scan(context.Background(), testItem(model.PlatformGemini))
	require.NoError(t, err)

	assertJob(t, outcome, model.PlatformGemini, "gemini-1.5-pro")
	require.NotNil(t, outcome.Job.TokensUsed)
	assert.Equal(t, 120, *outcome.Job.TokensUsed)
	assert.Len(t, outcome.Results, 2)
}

func TestNewGeminiProvider_MissingKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), Options{})

	var cfgErr *model.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
