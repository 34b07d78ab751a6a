package ai

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"GoldEater/internal/domain/helper"
	"GoldEater/internal/domain/model"
	"GoldEater/internal/metrics"
)

// Options は各AIプロバイダ共通の設定
type Options struct {
	APIKey              string
	BaseURL             string
	Model               string
	Temperature         float32
	MaxTokens           int
	Timeout             time.Duration
	SystemPromptVersion string
	Logger              *zap.Logger
	HTTPClient          *http.Client
}

func (o *Options) applyDefaults(defaultModel string) {
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.Temperature == 0 {
		o.Temperature = 0.7
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.SystemPromptVersion == "" {
		o.SystemPromptVersion = model.DefaultSystemPromptVersion
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: o.Timeout}
	}
}

// completion はプロバイダ応答のうちスキャン結果の組み立てに必要な部分
type completion struct {
	Content   string
	Tokens    *int
	Citations []string
}

// scanBuilder はプロバイダ応答から ScanJob と ScanResult を組み立てる
type scanBuilder struct {
	platform      string
	modelVersion  string
	promptVersion string
	logger        *zap.Logger
	now           func() time.Time
}

func newScanBuilder(platform string, opts Options) scanBuilder {
	return scanBuilder{
		platform:      platform,
		modelVersion:  opts.Model,
		promptVersion: opts.SystemPromptVersion,
		logger:        opts.Logger,
		now:           time.Now,
	}
}

// build は応答をパースして結果を作る。JSONとして読めない応答は結果0件のジョブとして扱う。
func (b scanBuilder) build(item model.WorkItem, userPrompt string, c completion) *model.ScanOutcome {
	job := model.ScanJob{
		ID:                  uuid.NewString(),
		H3Index:             item.Cell.H3Index,
		GridCenterLat:       item.Cell.CenterLat,
		GridCenterLng:       item.Cell.CenterLng,
		District:            item.District,
		PromptType:          item.PromptType,
		SystemPromptVersion: b.promptVersion,
		Platform:            b.platform,
		ModelVersion:        b.modelVersion,
		RunID:               item.RunID,
		TapNumber:           item.TapNumber,
		UserPrompt:          userPrompt,
		TokensUsed:          c.Tokens,
		ScannedAt:           b.now().UTC(),
	}

	recs, err := helper.ParseRecommendations(c.Content)
	if errors.Is(err, model.ErrMalformedResponse) {
		metrics.MalformedResponsesTotal.WithLabelValues(b.platform).Inc()
		b.logger.Warn("malformed provider response, keeping job with zero results",
			zap.String("platform", b.platform),
			zap.Stringer("item", item),
			zap.Error(err))
	}

	results := helper.ToScanResults(job.ID, recs, uuid.NewString)
	if c.Citations != nil {
		for i := range results {
			results[i].CitationURLs = append([]string{}, c.Citations...)
			results[i].CitationCount = intPtr(len(c.Citations))
		}
	}
	return &model.ScanOutcome{Job: job, Results: results}
}

func intPtr(v int) *int {
	return &v
}
