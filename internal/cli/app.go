package cli

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"GoldEater/internal/config"
	"GoldEater/internal/domain/model"
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/domain/service"
	"GoldEater/internal/infrastructure/ai"
	"GoldEater/internal/infrastructure/cache"
	"GoldEater/internal/infrastructure/maps"
	"GoldEater/internal/logger"
	"GoldEater/internal/metrics"
	repoImpl "GoldEater/internal/repository"
	"GoldEater/internal/usecase"
)

// appNeeds 各コマンドが必要とする依存
type appNeeds struct {
	platforms []string // 構築するスキャンプロバイダ。空なら作らない
	places    bool
	store     bool
}

// app プロセス起動時に一度だけ組み立てる依存関係
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	useCase usecase.ScanUseCase
	closers []func() error
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Env != "" {
		cfg.Env = opts.Env
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	return cfg, nil
}

func buildApp(ctx context.Context, cfg config.Config, needs appNeeds) (*app, error) {
	log, err := logger.NewLogger(cfg.Env, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	metrics.RegisterScanMetrics()

	a := &app{cfg: cfg, logger: log}
	params := usecase.ScanUseCaseParams{
		Scan:      cfg.Scan,
		Districts: &a.cfg,
		Logger:    log,
	}

	if needs.store {
		store, err := repoImpl.NewScanRepository(ctx, cfg.Store, log)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		params.Store = store

		reports, closeReports, err := repoImpl.NewRunReportRepository(ctx, cfg.Reports, log)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, closeReports)
		params.Reports = reports
	}

	if len(needs.platforms) > 0 {
		providers, err := ai.NewProviders(ctx, cfg, needs.platforms, log)
		if err != nil {
			a.close()
			return nil, err
		}
		params.Providers = providers
	}

	if needs.places && params.Store != nil {
		places, err := a.buildPlaces(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
		if places != nil {
			params.Resolver = service.NewLocationResolver(places, params.Store, cfg.Scan.ResolverWidth, log)
		}
	}

	a.useCase = usecase.NewScanUseCase(params)
	return a, nil
}

// buildPlaces APIキーが無ければ nil を返し、位置解決は行わない
func (a *app) buildPlaces(ctx context.Context) (repository.PlacesProvider, error) {
	pc := a.cfg.Providers.Places
	if pc.APIKey == "" {
		a.logger.Warn("GOOGLE_PLACES_API_KEY is not set; place resolution is disabled")
		return nil, nil
	}

	grid := service.NewGridGenerator(&a.cfg, a.cfg.Scan.H3Resolution, a.logger)
	var places repository.PlacesProvider = maps.NewGooglePlacesProvider(maps.PlacesOptions{
		APIKey:       pc.APIKey,
		BaseURL:      pc.BaseURL,
		RadiusMeters: pc.RadiusMeters,
		PlaceType:    pc.PlaceType,
		Timeout:      time.Duration(pc.TimeoutSec) * time.Second,
		CellIndexer:  grid.CellForLocation,
		Logger:       a.logger,
	})

	cc := a.cfg.Cache
	if len(cc.RedisAddrs) == 0 {
		return places, nil
	}
	redis, err := cache.NewRedisCache(cache.RedisConfig{Addrs: cc.RedisAddrs, Password: cc.Password})
	if err != nil {
		return nil, err
	}
	if err := redis.Ping(ctx); err != nil {
		a.logger.Warn("redis unreachable; continuing without places cache", zap.Error(err))
		redis.Close()
		return places, nil
	}
	a.closers = append(a.closers, func() error { redis.Close(); return nil })

	ttl := time.Duration(cc.TTLHours) * time.Hour
	return maps.NewCachedPlacesProvider(places, redis, cc.KeyPrefix, ttl, a.logger), nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

// configuredPlatforms APIキーが設定済みのプラットフォームのみ返す
func configuredPlatforms(cfg config.Config, platforms []string) []string {
	keys := map[string]string{
		model.PlatformChatGPT:    cfg.Providers.OpenAI.APIKey,
		model.PlatformPerplexity: cfg.Providers.Perplexity.APIKey,
		model.PlatformGemini:     cfg.Providers.Gemini.APIKey,
		model.PlatformClaude:     cfg.Providers.Claude.APIKey,
	}
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		if keys[p] != "" {
			out = append(out, p)
		}
	}
	return out
}

// withLogger コマンドのコンテキストにロガーを載せる
func (a *app) withLogger(ctx context.Context) context.Context {
	return logger.ContextWithLogger(ctx, a.logger)
}
