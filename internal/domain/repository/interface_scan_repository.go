package repository

import (
	"context"

	"GoldEater/internal/domain/model"
)

// BusinessUpserter は店舗をgoogle_place_idで冪等に保存する
type BusinessUpserter interface {
	// UpsertBusiness は保存後の正規IDを返す（既存レコードがあればそのID）
	UpsertBusiness(ctx context.Context, business *model.Business) (string, error)
}

// ScanRepository はスキャン結果の永続化を担うリポジトリインターフェース
type ScanRepository interface {
	BusinessUpserter

	InsertJobs(ctx context.Context, jobs []model.ScanJob) error
	InsertResults(ctx context.Context, results []model.ScanResult) error

	// ListUnresolvedResults は位置情報が未補完の結果を取得する
	ListUnresolvedResults(ctx context.Context, district string, limit int) ([]model.ScanResult, error)
	UpdateResultLocation(ctx context.Context, resultID string, loc model.ResultLocation) error

	ListBusinesses(ctx context.Context, district string) ([]model.Business, error)
	Close() error
}

// RunReportRepository はランの集計結果を保存するリポジトリインターフェース
type RunReportRepository interface {
	Save(ctx context.Context, report *model.RunReport) error
	Get(ctx context.Context, runID string) (*model.RunReport, error)
}
