package service

import "GoldEater/internal/domain/model"

// ResultAggregator は成功した結果をジョブと結果の一覧に平坦化する
type ResultAggregator struct{}

// NewResultAggregator は新しいResultAggregatorを作成
func NewResultAggregator() *ResultAggregator {
	return &ResultAggregator{}
}

// Aggregate は重複排除せずに全ジョブと全結果を返す
func (a *ResultAggregator) Aggregate(outcomes []model.ScanOutcome) ([]model.ScanJob, []model.ScanResult) {
	jobs := make([]model.ScanJob, 0, len(outcomes))
	total := 0
	for _, o := range outcomes {
		total += len(o.Results)
	}
	results := make([]model.ScanResult, 0, total)

	for _, o := range outcomes {
		jobs = append(jobs, o.Job)
		results = append(results, o.Results...)
	}
	return jobs, results
}
