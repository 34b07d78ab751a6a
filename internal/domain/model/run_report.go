package model

import "time"

// RunStatus ランの状態
type RunStatus string

const (
	RunStatusStarted   RunStatus = "started"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunReport 1回のスキャン実行の集計結果
type RunReport struct {
	RunID       string    `json:"run_id" firestore:"run_id"`
	District    string    `json:"district" firestore:"district"`
	Platforms   []string  `json:"platforms" firestore:"platforms"`
	PromptTypes []string  `json:"prompt_types" firestore:"prompt_types"`
	Status      RunStatus `json:"status" firestore:"status"`
	Error       string    `json:"error,omitempty" firestore:"error,omitempty"`
	StartedAt   time.Time `json:"started_at" firestore:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty" firestore:"completed_at,omitempty"`

	GridCells      int `json:"grid_cells" firestore:"grid_cells"`
	WorkItems      int `json:"work_items" firestore:"work_items"`
	Succeeded      int `json:"succeeded" firestore:"succeeded"`
	Failed         int `json:"failed" firestore:"failed"`
	Jobs           int `json:"jobs" firestore:"jobs"`
	Results        int `json:"results" firestore:"results"`
	DistinctNames  int `json:"distinct_names" firestore:"distinct_names"`
	Resolved       int `json:"resolved" firestore:"resolved"`
	NotFound       int `json:"not_found" firestore:"not_found"`
	ResolveErrors  int `json:"resolve_errors" firestore:"resolve_errors"`
	TokensConsumed int `json:"tokens_consumed" firestore:"tokens_consumed"`

	Failures    []string `json:"failures,omitempty" firestore:"failures,omitempty"`
	StoreErrors []string `json:"store_errors,omitempty" firestore:"store_errors,omitempty"`
}

// Unresolved 解決できなかった名前の数
func (r *RunReport) Unresolved() int {
	return r.DistinctNames - r.Resolved
}
