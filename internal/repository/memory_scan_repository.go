package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"GoldEater/internal/domain/model"
)

// MemoryScanRepository プロセス内だけで保持するスキャンリポジトリ（dry run とテスト用）
type MemoryScanRepository struct {
	mu         sync.RWMutex
	jobs       map[string]model.ScanJob
	results    []model.ScanResult
	businesses map[string]model.Business // google_place_id -> business
}

func NewMemoryScanRepository() *MemoryScanRepository {
	return &MemoryScanRepository{
		jobs:       make(map[string]model.ScanJob),
		businesses: make(map[string]model.Business),
	}
}

func (r *MemoryScanRepository) InsertJobs(ctx context.Context, jobs []model.ScanJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		if _, ok := r.jobs[j.ID]; ok {
			return model.NewStoreError("insert jobs", fmt.Errorf("duplicate job id %s", j.ID))
		}
		r.jobs[j.ID] = j
	}
	return nil
}

func (r *MemoryScanRepository) InsertResults(ctx context.Context, results []model.ScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range results {
		if _, ok := r.jobs[res.JobID]; !ok {
			return model.NewStoreError("insert results", fmt.Errorf("result %s references unknown job %s", res.ID, res.JobID))
		}
	}
	r.results = append(r.results, results...)
	return nil
}

func (r *MemoryScanRepository) UpsertBusiness(ctx context.Context, b *model.Business) (string, error) {
	if b == nil || b.GooglePlaceID == "" {
		return "", model.NewStoreError("upsert business", fmt.Errorf("google_place_id is required"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	row := *b
	if existing, ok := r.businesses[b.GooglePlaceID]; ok {
		row.ID = existing.ID
	} else if row.ID == "" {
		row.ID = uuid.New().String()
	}
	r.businesses[b.GooglePlaceID] = row
	return row.ID, nil
}

func (r *MemoryScanRepository) ListUnresolvedResults(ctx context.Context, district string, limit int) ([]model.ScanResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.ScanResult
	for _, res := range r.results {
		if res.IsResolved() {
			continue
		}
		if district != "" && r.jobs[res.JobID].District != district {
			continue
		}
		out = append(out, res)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryScanRepository) UpdateResultLocation(ctx context.Context, resultID string, loc model.ResultLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.results {
		if r.results[i].ID == resultID {
			r.results[i].ApplyLocation(loc)
			return nil
		}
	}
	return model.NewStoreError("update result location", fmt.Errorf("result %s not found", resultID))
}

func (r *MemoryScanRepository) ListBusinesses(ctx context.Context, district string) ([]model.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Business
	for _, b := range r.businesses {
		if district == "" || b.District == district {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OfficialName != out[j].OfficialName {
			return out[i].OfficialName < out[j].OfficialName
		}
		return out[i].GooglePlaceID < out[j].GooglePlaceID
	})
	return out, nil
}

// Jobs 保存済みジョブ数
func (r *MemoryScanRepository) Jobs() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Results 保存済み結果のコピー
func (r *MemoryScanRepository) Results() []model.ScanResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ScanResult, len(r.results))
	copy(out, r.results)
	return out
}

func (r *MemoryScanRepository) Close() error {
	return nil
}
