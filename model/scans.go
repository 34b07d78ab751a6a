package model

import (
	domain "GoldEater/internal/domain/model"
)

// CreateScanRequest POST /api/scans のリクエスト
type CreateScanRequest struct {
	District    string   `json:"district" binding:"required"`
	Platforms   []string `json:"platforms"`
	PromptTypes []string `json:"prompt_types"`
	Parallel    *bool    `json:"parallel"` // 省略時は並列実行
}

// CreateScanResponse ラン受付時のレスポンス
type CreateScanResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RunID     string `json:"run_id"`
	WorkItems int    `json:"work_items"`
}

// PromptType プロンプト種別と表示名
type PromptType struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type GetPromptTypesResponse struct {
	PromptTypes []PromptType `json:"prompt_types"`
	Platforms   []string     `json:"platforms"`
}

type GetDistrictsResponse struct {
	Districts []domain.District `json:"districts"`
}

// GetGridResponse GET /api/districts/:name/grid のレスポンス
type GetGridResponse struct {
	District    string            `json:"district"`
	DisplayName string            `json:"display_name"`
	Center      domain.LatLng     `json:"center"`
	Count       int               `json:"count"`
	Cells       []domain.GridCell `json:"cells"`
}

type GetBusinessesResponse struct {
	District   string            `json:"district,omitempty"`
	Count      int               `json:"count"`
	Businesses []domain.Business `json:"businesses"`
}

// ErrorResponse 共通のエラーレスポンス
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
