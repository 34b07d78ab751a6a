package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"GoldEater/internal/domain/helper"
	"GoldEater/internal/domain/model"
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/metrics"
)

// DefaultResolverWidth は名前解決の同時実行数
const DefaultResolverWidth = 4

// ResolutionReport は名前解決バッチの集計
type ResolutionReport struct {
	DistinctNames int
	Resolved      int
	NotFound      int
	NotFoundNames []string
	Failures      []NameFailure
	StoreErrors   []error
}

// NameFailure は名前解決に失敗した店舗名と原因
type NameFailure struct {
	Name string
	Err  error
}

func (f NameFailure) Error() string {
	return fmt.Sprintf("resolve %q: %v", f.Name, f.Err)
}

// LocationResolver は店舗名をPlacesで解決し、結果に位置情報を書き込む
type LocationResolver struct {
	places   repository.PlacesProvider
	upserter repository.BusinessUpserter
	width    int
	logger   *zap.Logger
}

// NewLocationResolver は新しいLocationResolverを作成
func NewLocationResolver(places repository.PlacesProvider, upserter repository.BusinessUpserter, width int, logger *zap.Logger) *LocationResolver {
	if width <= 0 {
		width = DefaultResolverWidth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationResolver{
		places:   places,
		upserter: upserter,
		width:    width,
		logger:   logger,
	}
}

// Resolve は重複のない店舗名ごとに1回だけPlacesを呼び、results をその場で更新する。
// 検索中心は地区の中心点。1件の失敗はバッチを止めない。
func (r *LocationResolver) Resolve(ctx context.Context, district model.District, results []model.ScanResult) ResolutionReport {
	names := helper.DistinctRawNames(results)
	byName := helper.IndexResultsByName(results)

	report := ResolutionReport{DistinctNames: len(names)}
	if len(names) == 0 {
		return report
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.width)

	for _, name := range names {
		g.Go(func() error {
			business, err := r.places.Resolve(gctx, name, district.Center)
			if errors.Is(err, model.ErrPlaceNotFound) {
				metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
				r.logger.Info("place not found (possible hallucination)", zap.String("name", name))
				mu.Lock()
				report.NotFound++
				report.NotFoundNames = append(report.NotFoundNames, name)
				mu.Unlock()
				return nil
			}
			if err == nil && business == nil {
				err = fmt.Errorf("places provider returned no business for %q", name)
			}
			if err != nil {
				metrics.ResolutionsTotal.WithLabelValues("error").Inc()
				r.logger.Warn("place resolution failed", zap.String("name", name), zap.Error(err))
				mu.Lock()
				report.Failures = append(report.Failures, NameFailure{Name: name, Err: err})
				mu.Unlock()
				return nil
			}

			business.District = district.Name
			var storeErr error
			if r.upserter != nil {
				id, upsertErr := r.upserter.UpsertBusiness(gctx, business)
				if upsertErr != nil {
					storeErr = wrapStoreError("upsert business", upsertErr)
					r.logger.Warn("business upsert failed", zap.String("place_id", business.GooglePlaceID), zap.Error(upsertErr))
					// 保存されていない店舗IDは結果に書き戻さない
					business.ID = ""
				} else if id != "" {
					business.ID = id
				}
			}
			metrics.ResolutionsTotal.WithLabelValues("resolved").Inc()
			r.logger.Debug("resolved", zap.String("name", name), zap.String("official_name", business.OfficialName))

			loc := model.LocationFromBusiness(business)
			mu.Lock()
			defer mu.Unlock()
			for _, i := range byName[name] {
				results[i].ApplyLocation(loc)
			}
			report.Resolved++
			if storeErr != nil {
				report.StoreErrors = append(report.StoreErrors, storeErr)
			}
			return nil
		})
	}
	// 失敗は名前ごとに report に集約済みで、goroutine はエラーを返さない
	_ = g.Wait()

	sort.Strings(report.NotFoundNames)
	sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].Name < report.Failures[j].Name })

	return report
}

func wrapStoreError(op string, err error) error {
	var se *model.StoreError
	if errors.As(err, &se) {
		return err
	}
	return model.NewStoreError(op, err)
}
