package database

import (
	"fmt"

	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// SupabaseClient Supabaseクライアントのラッパー
type SupabaseClient struct {
	Client *supabase.Client
}

// NewSupabaseClient 設定値からSupabaseクライアントを作成
func NewSupabaseClient(url, key string, logger *zap.Logger) (*SupabaseClient, error) {
	if url == "" {
		return nil, fmt.Errorf("supabase url が設定されていません")
	}
	if key == "" {
		return nil, fmt.Errorf("supabase key が設定されていません")
	}

	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("Supabaseクライアントの初期化に失敗: %w", err)
	}

	if logger != nil {
		logger.Info("supabase client initialized", zap.String("url", url))
	}

	return &SupabaseClient{Client: client}, nil
}

// GetClient Supabaseクライアントを取得
func (sc *SupabaseClient) GetClient() *supabase.Client {
	return sc.Client
}

// HealthCheck クライアントが初期化済みか確認
func (sc *SupabaseClient) HealthCheck() error {
	if sc == nil || sc.Client == nil {
		return fmt.Errorf("Supabaseクライアントが初期化されていません")
	}
	return nil
}
