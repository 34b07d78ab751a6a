package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"GoldEater/internal/config"
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/infrastructure/database"
	"GoldEater/internal/infrastructure/firestore"
)

// NewScanRepository store.driver に応じたスキャンリポジトリを作成する
func NewScanRepository(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (repository.ScanRepository, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		client, err := database.NewSQLiteClient(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return NewSQLiteScanRepository(client), nil
	case config.StorePostgres:
		client, err := database.NewPostgreSQLClient(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		return NewPostgresScanRepository(client), nil
	case config.StoreSupabase:
		client, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseKey, logger)
		if err != nil {
			return nil, err
		}
		if err := client.HealthCheck(); err != nil {
			return nil, err
		}
		return NewSupabaseScanRepository(client, SupabaseTables{
			Jobs:       cfg.JobsTable,
			Results:    cfg.ResultsTable,
			Businesses: cfg.BusinessesTable,
		}), nil
	case config.StoreMemory:
		return NewMemoryScanRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewRunReportRepository reports.driver に応じたレポート保存先を作成する。
// 返す close 関数は常に呼んでよい。
func NewRunReportRepository(ctx context.Context, cfg config.ReportsConfig, logger *zap.Logger) (repository.RunReportRepository, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.ReportsFile, "":
		return NewFileRunReportRepository(cfg.Dir), noop, nil
	case config.ReportsFirestore:
		client, err := firestore.NewFirestoreClient(ctx, cfg.FirestoreProjectID, cfg.CredentialsFile, logger)
		if err != nil {
			return nil, noop, err
		}
		return NewFirestoreRunReportRepository(client.GetClient(), cfg.FirestoreCollection, logger), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown reports driver %q", cfg.Driver)
	}
}
