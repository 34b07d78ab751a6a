package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"GoldEater/internal/config"
	"GoldEater/internal/domain/helper"
	"GoldEater/internal/domain/model"
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/domain/service"
	"GoldEater/internal/metrics"
)

// ScanRequest 1回のスキャン実行の指定。空のフィールドは設定値で補う。
type ScanRequest struct {
	District    string
	Platforms   []string
	PromptTypes []string
	Parallel    bool
	RunID       string
	Progress    service.ProgressFunc
}

// BackfillReport 保存済み結果の位置情報補完の集計
type BackfillReport struct {
	District    string
	Candidates  int
	Resolution  service.ResolutionReport
	Updated     int
	StoreErrors []error
}

type ScanUseCase interface {
	// Run は地区全体のスキャンを実行し、ランレポートを返す。
	// 設定エラーはプロバイダ呼び出し前に ConfigError として返る。
	Run(ctx context.Context, req ScanRequest) (*model.RunReport, error)

	// Backfill は未解決の保存済み結果に位置情報を補完する
	Backfill(ctx context.Context, district string, limit int) (*BackfillReport, error)

	// Grid は地区のグリッドをプレビューする（プロバイダ呼び出しなし）
	Grid(district string) (model.District, []model.GridCell, error)

	Businesses(ctx context.Context, district string) ([]model.Business, error)
	Report(ctx context.Context, runID string) (*model.RunReport, error)
	PlannedItems(district string, platforms, promptTypes []string) (int, error)
}

// ScanUseCaseParams ScanUseCase の依存関係
type ScanUseCaseParams struct {
	Scan      config.ScanConfig
	Districts service.DistrictSource
	Providers []repository.ScanProvider
	Resolver  *service.LocationResolver // nil なら位置解決をスキップ
	Store     repository.ScanRepository
	Reports   repository.RunReportRepository
	Logger    *zap.Logger
	Now       func() time.Time
}

type scanUseCaseImpl struct {
	scan       config.ScanConfig
	districts  service.DistrictSource
	providers  []repository.ScanProvider
	grid       *service.GridGenerator
	planner    *service.TaskPlanner
	aggregator *service.ResultAggregator
	resolver   *service.LocationResolver
	store      repository.ScanRepository
	reports    repository.RunReportRepository
	logger     *zap.Logger
	now        func() time.Time
}

func NewScanUseCase(p ScanUseCaseParams) ScanUseCase {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return &scanUseCaseImpl{
		scan:       p.Scan,
		districts:  p.Districts,
		providers:  p.Providers,
		grid:       service.NewGridGenerator(p.Districts, p.Scan.H3Resolution, p.Logger),
		planner:    service.NewTaskPlanner(),
		aggregator: service.NewResultAggregator(),
		resolver:   p.Resolver,
		store:      p.Store,
		reports:    p.Reports,
		logger:     p.Logger,
		now:        p.Now,
	}
}

// plan 検証済みのラン構成
type plan struct {
	district    model.District
	platforms   []string
	promptTypes []string
	cells       []model.GridCell
}

func (u *scanUseCaseImpl) Run(ctx context.Context, req ScanRequest) (*model.RunReport, error) {
	p, err := u.validate(req.District, req.Platforms, req.PromptTypes)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = service.NewRunID(u.now())
	}
	logger := u.logger.With(zap.String("run_id", runID), zap.String("district", p.district.Name))

	report := &model.RunReport{
		RunID:       runID,
		District:    p.district.Name,
		Platforms:   p.platforms,
		PromptTypes: p.promptTypes,
		Status:      model.RunStatusStarted,
		StartedAt:   u.now().UTC(),
		GridCells:   len(p.cells),
	}

	// 中断後もここまでの結果は保存する
	persistCtx := context.WithoutCancel(ctx)
	u.saveReport(persistCtx, report, logger)

	items := u.planner.Plan(p.cells, p.district, p.platforms, p.promptTypes, u.scan.Repetitions, runID)
	report.WorkItems = len(items)

	width := u.scan.PoolWidth
	if !req.Parallel {
		width = 1
	}
	logger.Info("scan started",
		zap.Int("grid_cells", len(p.cells)),
		zap.Int("work_items", len(items)),
		zap.Int("pool_width", width))

	executor := service.NewConcurrentExecutor(u.providers, width, logger)
	execution := executor.Execute(ctx, items, req.Progress)
	report.Succeeded = len(execution.Outcomes)
	report.Failed = len(execution.Failures)
	for _, f := range execution.Failures {
		report.Failures = append(report.Failures, f.Error())
	}

	jobs, results := u.aggregator.Aggregate(execution.Outcomes)
	report.Jobs = len(jobs)
	report.Results = len(results)
	for _, j := range jobs {
		if j.TokensUsed != nil {
			report.TokensConsumed += *j.TokensUsed
		}
	}

	if u.resolver != nil && ctx.Err() == nil {
		resolution := u.resolver.Resolve(ctx, p.district, results)
		applyResolution(report, resolution)
	} else if u.resolver == nil {
		logger.Warn("location resolver not configured; skipping place resolution")
	}

	if err := u.store.InsertJobs(persistCtx, jobs); err != nil {
		logger.Error("failed to store jobs", zap.Error(err))
		report.StoreErrors = append(report.StoreErrors, err.Error())
		if len(results) > 0 {
			report.StoreErrors = append(report.StoreErrors, "insert results skipped: jobs were not stored")
		}
	} else if err := u.store.InsertResults(persistCtx, results); err != nil {
		logger.Error("failed to store results", zap.Error(err))
		report.StoreErrors = append(report.StoreErrors, err.Error())
	}

	report.CompletedAt = u.now().UTC()
	var runErr error
	if cause := context.Cause(ctx); cause != nil {
		report.Status = model.RunStatusFailed
		report.Error = cause.Error()
		runErr = fmt.Errorf("scan %s interrupted: %w", runID, cause)
	} else {
		report.Status = model.RunStatusCompleted
	}
	metrics.RunsTotal.WithLabelValues(string(report.Status)).Inc()
	u.saveReport(persistCtx, report, logger)

	logger.Info("scan finished",
		zap.String("status", string(report.Status)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("results", report.Results),
		zap.Int("resolved", report.Resolved),
		zap.Int("unresolved", report.Unresolved()),
		zap.Int("store_errors", len(report.StoreErrors)))

	return report, runErr
}

func applyResolution(report *model.RunReport, r service.ResolutionReport) {
	report.DistinctNames = r.DistinctNames
	report.Resolved = r.Resolved
	report.NotFound = r.NotFound
	report.ResolveErrors = len(r.Failures)
	for _, f := range r.Failures {
		report.Failures = append(report.Failures, f.Error())
	}
	for _, err := range r.StoreErrors {
		report.StoreErrors = append(report.StoreErrors, err.Error())
	}
}

func (u *scanUseCaseImpl) saveReport(ctx context.Context, report *model.RunReport, logger *zap.Logger) {
	if u.reports == nil {
		return
	}
	if err := u.reports.Save(ctx, report); err != nil {
		logger.Warn("failed to save run report", zap.Error(err))
	}
}

// validate は地区・プラットフォーム・プロンプト種別を検証し、グリッドを生成する
func (u *scanUseCaseImpl) validate(district string, platforms, promptTypes []string) (*plan, error) {
	d, err := u.districts.District(district)
	if err != nil {
		return nil, err
	}

	if len(platforms) == 0 {
		platforms = u.scan.Platforms
	}
	platforms = dedupe(platforms)
	if len(platforms) == 0 {
		return nil, model.NewConfigError("scan.platforms", "no platforms selected", nil)
	}
	available := make(map[string]bool, len(u.providers))
	for _, p := range u.providers {
		available[p.Platform()] = true
	}
	for _, p := range platforms {
		if !isKnownPlatform(p) {
			return nil, model.NewConfigError("scan.platforms", fmt.Sprintf("unknown platform %q", p), nil)
		}
		if !available[p] {
			return nil, model.NewConfigError("providers."+p, "provider is not configured", nil)
		}
	}

	if len(promptTypes) == 0 {
		promptTypes = u.scan.PromptTypes
	}
	promptTypes = dedupe(promptTypes)
	if len(promptTypes) == 0 {
		return nil, model.NewConfigError("scan.prompt_types", "no prompt types selected", nil)
	}
	for _, pt := range promptTypes {
		if !helper.IsKnownPromptType(pt) {
			return nil, model.NewConfigError("scan.prompt_types", fmt.Sprintf("unknown prompt type %q", pt), nil)
		}
	}

	if u.scan.Repetitions <= 0 {
		return nil, model.NewConfigError("scan.repetitions", "must be at least 1", nil)
	}

	cells, err := u.grid.GenerateForDistrict(d)
	if err != nil {
		return nil, err
	}
	return &plan{district: d, platforms: platforms, promptTypes: promptTypes, cells: cells}, nil
}

func (u *scanUseCaseImpl) PlannedItems(district string, platforms, promptTypes []string) (int, error) {
	p, err := u.validate(district, platforms, promptTypes)
	if err != nil {
		return 0, err
	}
	return len(p.cells) * len(p.platforms) * len(p.promptTypes) * u.scan.Repetitions, nil
}

func (u *scanUseCaseImpl) Backfill(ctx context.Context, district string, limit int) (*BackfillReport, error) {
	d, err := u.districts.District(district)
	if err != nil {
		return nil, err
	}
	if u.resolver == nil {
		return nil, model.NewConfigError("providers.places", "places provider is not configured", nil)
	}

	results, err := u.store.ListUnresolvedResults(ctx, d.Name, limit)
	if err != nil {
		return nil, err
	}
	report := &BackfillReport{District: d.Name, Candidates: len(results)}
	if len(results) == 0 {
		return report, nil
	}

	report.Resolution = u.resolver.Resolve(ctx, d, results)
	report.StoreErrors = append(report.StoreErrors, report.Resolution.StoreErrors...)

	for i := range results {
		loc, ok := results[i].Location()
		if !ok {
			continue
		}
		if err := u.store.UpdateResultLocation(ctx, results[i].ID, loc); err != nil {
			u.logger.Warn("failed to write back result location", zap.String("result_id", results[i].ID), zap.Error(err))
			report.StoreErrors = append(report.StoreErrors, err)
			continue
		}
		report.Updated++
	}

	u.logger.Info("backfill finished",
		zap.String("district", d.Name),
		zap.Int("candidates", report.Candidates),
		zap.Int("distinct_names", report.Resolution.DistinctNames),
		zap.Int("resolved", report.Resolution.Resolved),
		zap.Int("updated", report.Updated),
		zap.Int("store_errors", len(report.StoreErrors)))

	var joined error
	if len(report.StoreErrors) > 0 {
		joined = errors.Join(report.StoreErrors...)
	}
	return report, joined
}

func (u *scanUseCaseImpl) Grid(district string) (model.District, []model.GridCell, error) {
	d, err := u.districts.District(district)
	if err != nil {
		return model.District{}, nil, err
	}
	cells, err := u.grid.GenerateForDistrict(d)
	if err != nil {
		return model.District{}, nil, err
	}
	return d, cells, nil
}

func (u *scanUseCaseImpl) Businesses(ctx context.Context, district string) ([]model.Business, error) {
	if district != "" {
		if _, err := u.districts.District(district); err != nil {
			return nil, err
		}
	}
	return u.store.ListBusinesses(ctx, district)
}

func (u *scanUseCaseImpl) Report(ctx context.Context, runID string) (*model.RunReport, error) {
	if u.reports == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
	}
	return u.reports.Get(ctx, runID)
}

func isKnownPlatform(p string) bool {
	for _, known := range model.GetAllPlatforms() {
		if p == known {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
