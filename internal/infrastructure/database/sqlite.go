package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed schema_sqlite.sql
var sqliteSchemaSQL string

// 0: 初期スキーマ
// 1: scan_results(google_place_id) のインデックス追加
const sqliteSchemaVersion = 1

// SQLiteClient ローカル実行用のSQLiteクライアント
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLiteClient SQLiteファイルを開き、プラグマとスキーマを適用する。
// 既存ファイルに対して何度呼んでも安全。
func NewSQLiteClient(path string, logger *zap.Logger) (*SQLiteClient, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path が設定されていません")
	}
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("SQLiteのオープンに失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLiteへの接続に失敗: %w", err)
	}

	// 書き込みは単一コネクションに直列化する
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applySQLitePragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySQLiteSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("sqlite store opened", zap.String("path", path))
	}

	return &SQLiteClient{DB: db}, nil
}

// Close データベース接続を閉じる
func (c *SQLiteClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("プラグマ %q の適用に失敗: %w", pragma, err)
		}
	}
	return nil
}

func applySQLiteSchema(db *sql.DB) error {
	if _, err := db.Exec(sqliteSchemaSQL); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("user_version の取得に失敗: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_scan_results_place ON scan_results (google_place_id)`); err != nil {
			return fmt.Errorf("v1 マイグレーションに失敗: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return fmt.Errorf("user_version の更新に失敗: %w", err)
	}
	return nil
}
