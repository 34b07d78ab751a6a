package repository

import (
	"context"

	"GoldEater/internal/domain/model"
)

// ScanProvider はAIプラットフォーム1種類へのスキャン呼び出しを担うインターフェース
type ScanProvider interface {
	// Platform はプラットフォーム識別子（chatgpt, perplexity, ...）を返す
	Platform() string

	// Scan はWorkItem 1件分のプロンプトを送信し、ジョブと結果を返す。
	// 応答が壊れている場合は結果0件の成功として扱う。
	Scan(ctx context.Context, item model.WorkItem) (*model.ScanOutcome, error)
}

// PlacesProvider はAIが返した店舗名を実在の店舗に解決するインターフェース
type PlacesProvider interface {
	// Resolve は該当なしの場合 model.ErrPlaceNotFound を返す
	Resolve(ctx context.Context, name string, anchor model.LatLng) (*model.Business, error)
}
