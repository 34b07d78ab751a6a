package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"GoldEater/internal/domain/model"
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/metrics"
)

// DefaultPoolWidth は並列実行時のワーカー数
const DefaultPoolWidth = 10

// ExecutionReport は全 WorkItem の実行結果。成功と失敗は入力順に並ぶ。
type ExecutionReport struct {
	Outcomes []model.ScanOutcome
	Failures []model.WorkItemFailure
}

// Total は処理済みの WorkItem 数
func (r *ExecutionReport) Total() int {
	return len(r.Outcomes) + len(r.Failures)
}

// ProgressFunc は WorkItem が1件終わるごとに単一のgoroutineから呼ばれる。err が nil なら成功。
type ProgressFunc func(item model.WorkItem, err error)

// ConcurrentExecutor は固定幅のワーカープールで WorkItem をプロバイダに振り分ける
type ConcurrentExecutor struct {
	providers map[string]repository.ScanProvider
	width     int
	logger    *zap.Logger
}

// NewConcurrentExecutor は新しいConcurrentExecutorを作成。width 1 で逐次実行。
func NewConcurrentExecutor(providers []repository.ScanProvider, width int, logger *zap.Logger) *ConcurrentExecutor {
	if width <= 0 {
		width = DefaultPoolWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	byPlatform := make(map[string]repository.ScanProvider, len(providers))
	for _, p := range providers {
		byPlatform[p.Platform()] = p
	}
	return &ConcurrentExecutor{
		providers: byPlatform,
		width:     width,
		logger:    logger,
	}
}

// Width はワーカー数を返す
func (e *ConcurrentExecutor) Width() int {
	return e.width
}

type itemResult struct {
	index   int
	item    model.WorkItem
	outcome *model.ScanOutcome
	err     error
}

// Execute は全 WorkItem を実行する。1件の失敗は他に影響しない。
// プロバイダ呼び出しは呼び出し元のキャンセルから切り離して実行し、
// キャンセル後は未着手の WorkItem を失敗として記録して新規投入を止める。
func (e *ConcurrentExecutor) Execute(ctx context.Context, items []model.WorkItem, progress ProgressFunc) ExecutionReport {
	report := ExecutionReport{
		Outcomes: []model.ScanOutcome{},
		Failures: []model.WorkItemFailure{},
	}
	if len(items) == 0 {
		return report
	}

	width := e.width
	if width > len(items) {
		width = len(items)
	}

	e.logger.Info("executing work items", zap.Int("items", len(items)), zap.Int("width", width))
	start := time.Now()

	callCtx := context.WithoutCancel(ctx)
	jobs := make(chan int)
	results := make(chan itemResult, width)
	var wg sync.WaitGroup

	for w := 0; w < width; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcome, err := e.runOne(callCtx, items[i])
				results <- itemResult{index: i, item: items[i], outcome: outcome, err: err}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i := range items {
			if ctx.Err() != nil {
				e.cancelRemaining(ctx, items, i, results)
				return
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				e.cancelRemaining(ctx, items, i, results)
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]itemResult, 0, len(items))
	for res := range results {
		status := "ok"
		if res.err != nil {
			status = "failed"
			e.logger.Warn("work item failed", zap.Stringer("item", res.item), zap.Error(res.err))
		}
		metrics.WorkItemsTotal.WithLabelValues(res.item.Platform, status).Inc()
		if progress != nil {
			progress(res.item, res.err)
		}
		collected = append(collected, res)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	for _, res := range collected {
		if res.err != nil {
			report.Failures = append(report.Failures, model.WorkItemFailure{Item: res.item, Err: res.err})
			continue
		}
		report.Outcomes = append(report.Outcomes, *res.outcome)
	}

	e.logger.Info("work items finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("succeeded", len(report.Outcomes)),
		zap.Int("failed", len(report.Failures)))
	return report
}

func (e *ConcurrentExecutor) cancelRemaining(ctx context.Context, items []model.WorkItem, from int, results chan<- itemResult) {
	err := fmt.Errorf("not started: %w", context.Cause(ctx))
	for i := from; i < len(items); i++ {
		results <- itemResult{index: i, item: items[i], err: err}
	}
}

// runOne は1件の WorkItem を実行する。panic は失敗として回収する。
func (e *ConcurrentExecutor) runOne(ctx context.Context, item model.WorkItem) (outcome *model.ScanOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = nil
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()

	provider, ok := e.providers[item.Platform]
	if !ok {
		return nil, model.NewConfigError("scan.platforms", fmt.Sprintf("no provider registered for platform %q", item.Platform), nil)
	}

	start := time.Now()
	outcome, err = provider.Scan(ctx, item)
	metrics.ProviderRequestDuration.WithLabelValues(item.Platform).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, fmt.Errorf("%s provider returned no outcome", item.Platform)
	}
	if outcome.Job.TokensUsed != nil {
		metrics.ProviderTokensTotal.WithLabelValues(item.Platform).Add(float64(*outcome.Job.TokensUsed))
	}
	return outcome, nil
}
