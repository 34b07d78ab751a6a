package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorkItem 1回のプロバイダ呼び出しを一意に表す作業単位
type WorkItem struct {
	Cell            GridCell `json:"cell"`
	District        string   `json:"district"`
	DistrictDisplay string   `json:"district_display"` // プロンプト用の表示名
	Platform        string   `json:"platform"`
	PromptType      string   `json:"prompt_type"`
	TapNumber       int      `json:"tap_number"` // 1始まりの繰り返し番号
	RunID           string   `json:"run_id"`
}

// Key 同一ラン内での重複判定キー
func (w WorkItem) Key() string {
	return fmt.Sprintf("%s|%s|%s|%d", w.Cell.H3Index, w.Platform, w.PromptType, w.TapNumber)
}

// String ログ・進捗表示用の表現
func (w WorkItem) String() string {
	return fmt.Sprintf("%s | %s | %s | tap%d", w.Platform, w.Cell.ShortIndex(), w.PromptType, w.TapNumber)
}

// ScanJob プロバイダ呼び出し1回分のメタデータ
type ScanJob struct {
	ID                  string    `json:"id"`
	H3Index             string    `json:"h3_index"`
	GridCenterLat       float64   `json:"grid_center_lat"`
	GridCenterLng       float64   `json:"grid_center_lng"`
	District            string    `json:"district"`
	PromptType          string    `json:"prompt_type"`
	SystemPromptVersion string    `json:"system_prompt_version"`
	Platform            string    `json:"platform"`
	ModelVersion        string    `json:"model_version"`
	RunID               string    `json:"scan_run_id"`
	TapNumber           int       `json:"tap_number"`
	UserPrompt          string    `json:"user_prompt_template,omitempty"`
	TokensUsed          *int      `json:"tokens_used,omitempty"` // サービスが報告した場合のみ
	ScannedAt           time.Time `json:"scanned_at"`
}

// ScanResult ジョブが返したランキング1件
type ScanResult struct {
	ID            string          `json:"id"`
	JobID         string          `json:"job_id"`
	RawName       string          `json:"raw_name"`
	RankPosition  int             `json:"rank_position"`
	Reasoning     string          `json:"reasoning,omitempty"`
	VibeTags      []string        `json:"vibe_tags"`
	NegativeFlags []string        `json:"negative_flags"`
	CitationURLs  []string        `json:"citation_urls"`
	CitationCount *int            `json:"citation_count,omitempty"`
	RawJSON       json.RawMessage `json:"raw_json_response,omitempty"`

	// 位置情報（LocationResolverが補完する）
	BusinessID      *string  `json:"business_id,omitempty"`
	NormalizedName  *string  `json:"normalized_name,omitempty"`
	BusinessLat     *float64 `json:"business_lat,omitempty"`
	BusinessLng     *float64 `json:"business_lng,omitempty"`
	BusinessAddress *string  `json:"business_address,omitempty"`
	GooglePlaceID   *string  `json:"google_place_id,omitempty"`
}

// IsResolved 位置情報が補完済みかチェック
func (r *ScanResult) IsResolved() bool {
	return r.GooglePlaceID != nil && *r.GooglePlaceID != ""
}

// ApplyLocation 解決済みの店舗情報を結果に反映
func (r *ScanResult) ApplyLocation(loc ResultLocation) {
	r.BusinessID = stringPtr(loc.BusinessID)
	r.GooglePlaceID = stringPtr(loc.GooglePlaceID)
	r.NormalizedName = stringPtr(loc.NormalizedName)
	r.BusinessAddress = stringPtr(loc.Address)
	lat, lng := loc.Lat, loc.Lng
	r.BusinessLat = &lat
	r.BusinessLng = &lng
}

// Location 補完済みの位置情報を取り出す。未解決なら ok=false。
func (r *ScanResult) Location() (ResultLocation, bool) {
	if !r.IsResolved() {
		return ResultLocation{}, false
	}
	loc := ResultLocation{GooglePlaceID: *r.GooglePlaceID}
	if r.BusinessID != nil {
		loc.BusinessID = *r.BusinessID
	}
	if r.NormalizedName != nil {
		loc.NormalizedName = *r.NormalizedName
	}
	if r.BusinessAddress != nil {
		loc.Address = *r.BusinessAddress
	}
	if r.BusinessLat != nil {
		loc.Lat = *r.BusinessLat
	}
	if r.BusinessLng != nil {
		loc.Lng = *r.BusinessLng
	}
	return loc, true
}

// ResultLocation 結果に書き戻す位置情報
type ResultLocation struct {
	BusinessID     string  `json:"business_id,omitempty"`
	GooglePlaceID  string  `json:"google_place_id"`
	NormalizedName string  `json:"normalized_name"`
	Address        string  `json:"business_address"`
	Lat            float64 `json:"business_lat"`
	Lng            float64 `json:"business_lng"`
}

// LocationFromBusiness Business から結果用の位置情報を作成
func LocationFromBusiness(b *Business) ResultLocation {
	return ResultLocation{
		BusinessID:     b.ID,
		GooglePlaceID:  b.GooglePlaceID,
		NormalizedName: b.OfficialName,
		Address:        b.Address,
		Lat:            b.Lat,
		Lng:            b.Lng,
	}
}

// ScanOutcome 成功した WorkItem の結果
type ScanOutcome struct {
	Job     ScanJob      `json:"job"`
	Results []ScanResult `json:"results"`
}

// WorkItemFailure 失敗した WorkItem とその原因
type WorkItemFailure struct {
	Item WorkItem
	Err  error
}

// Error 失敗内容を再現可能な形式で返す
func (f WorkItemFailure) Error() string {
	return fmt.Sprintf("%s [%s]: %v", f.Item.String(), f.Item.Cell.H3Index, f.Err)
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
