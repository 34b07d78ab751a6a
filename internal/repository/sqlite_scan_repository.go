package repository

import (
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/infrastructure/database"
)

// NewSQLiteScanRepository ローカル実行用のSQLiteスキャンリポジトリを作成
func NewSQLiteScanRepository(client *database.SQLiteClient) repository.ScanRepository {
	return &sqlScanRepository{
		db:      client.DB,
		rebind:  questionPlaceholders,
		closeFn: client.Close,
	}
}
