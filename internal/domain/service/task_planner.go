package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"GoldEater/internal/domain/model"
)

// TaskPlanner はグリッド×プラットフォーム×プロンプト×繰り返しの作業単位を展開する
type TaskPlanner struct{}

// NewTaskPlanner は新しいTaskPlannerを作成
func NewTaskPlanner() *TaskPlanner {
	return &TaskPlanner{}
}

// Plan は全組み合わせの WorkItem を返す。
// 並び順は セル → プラットフォーム → プロンプト種別 → タップ(1..repetitions)。
func (p *TaskPlanner) Plan(cells []model.GridCell, district model.District, platforms, promptTypes []string, repetitions int, runID string) []model.WorkItem {
	if repetitions <= 0 {
		return []model.WorkItem{}
	}

	items := make([]model.WorkItem, 0, len(cells)*len(platforms)*len(promptTypes)*repetitions)
	for _, cell := range cells {
		for _, platform := range platforms {
			for _, promptType := range promptTypes {
				for tap := 1; tap <= repetitions; tap++ {
					items = append(items, model.WorkItem{
						Cell:            cell,
						District:        district.Name,
						DistrictDisplay: district.DisplayName,
						Platform:        platform,
						PromptType:      promptType,
						TapNumber:       tap,
						RunID:           runID,
					})
				}
			}
		}
	}
	return items
}

// NewRunID は run-YYYYMMDD-HHMMSS-<8桁hex> 形式のラン識別子を生成する
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("run-%s-%s", now.UTC().Format("20060102-150405"), suffix)
}
