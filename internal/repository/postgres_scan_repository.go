package repository

import (
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/infrastructure/database"
)

// NewPostgresScanRepository PostgreSQL直接接続のスキャンリポジトリを作成
func NewPostgresScanRepository(client *database.PostgreSQLClient) repository.ScanRepository {
	return &sqlScanRepository{
		db:      client.DB,
		rebind:  dollarPlaceholders,
		closeFn: client.Close,
	}
}
