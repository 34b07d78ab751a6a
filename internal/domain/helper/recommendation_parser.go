package helper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"GoldEater/internal/domain/model"
)

// Recommendation はプロバイダ応答に含まれる推薦1件
type Recommendation struct {
	Name          string          `json:"name"`
	Rank          flexInt         `json:"rank"`
	Reasoning     string          `json:"reasoning"`
	VibeTags      []string        `json:"vibe_tags"`
	NegativeFlags []string        `json:"negative_flags"`
	Raw           json.RawMessage `json:"-"`
}

type recommendationEnvelope struct {
	Recommendations []json.RawMessage `json:"recommendations"`
}

// ParseRecommendations はプロバイダのテキスト応答から推薦一覧を取り出す。
// JSONでない、または recommendations を含まない場合は空スライスと ErrMalformedResponse を返す。
// 個々の推薦がデコードできない場合はその1件だけを読み飛ばす。
func ParseRecommendations(content string) ([]Recommendation, error) {
	body := stripCodeFence(content)
	if body == "" {
		return []Recommendation{}, fmt.Errorf("empty content: %w", model.ErrMalformedResponse)
	}

	var env recommendationEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return []Recommendation{}, fmt.Errorf("%v: %w", err, model.ErrMalformedResponse)
	}
	if env.Recommendations == nil {
		return []Recommendation{}, fmt.Errorf("recommendations key missing: %w", model.ErrMalformedResponse)
	}

	recs := make([]Recommendation, 0, len(env.Recommendations))
	for _, raw := range env.Recommendations {
		var rec Recommendation
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		rec.Name = strings.TrimSpace(rec.Name)
		rec.Raw = compactJSON(raw)
		if rec.VibeTags == nil {
			rec.VibeTags = []string{}
		}
		if rec.NegativeFlags == nil {
			rec.NegativeFlags = []string{}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ToScanResults は推薦一覧をジョブに紐づく ScanResult に変換する
func ToScanResults(jobID string, recs []Recommendation, newID func() string) []model.ScanResult {
	results := make([]model.ScanResult, 0, len(recs))
	for _, rec := range recs {
		results = append(results, model.ScanResult{
			ID:            newID(),
			JobID:         jobID,
			RawName:       rec.Name,
			RankPosition:  int(rec.Rank),
			Reasoning:     rec.Reasoning,
			VibeTags:      rec.VibeTags,
			NegativeFlags: rec.NegativeFlags,
			CitationURLs:  []string{},
			RawJSON:       rec.Raw,
		})
	}
	return results
}

// stripCodeFence は ```json ... ``` で囲まれた応答から中身を取り出す
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func compactJSON(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// flexInt は数値と数値文字列の両方を受け付ける
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}
