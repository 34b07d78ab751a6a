package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"GoldEater/internal/domain/model"
	"GoldEater/internal/domain/repository"
	"GoldEater/internal/infrastructure/database"
)

// SupabaseTables Supabase上のテーブル名
type SupabaseTables struct {
	Jobs       string
	Results    string
	Businesses string
}

type SupabaseScanRepository struct {
	client *database.SupabaseClient
	tables SupabaseTables
}

func NewSupabaseScanRepository(client *database.SupabaseClient, tables SupabaseTables) repository.ScanRepository {
	if tables.Jobs == "" {
		tables.Jobs = "scan_jobs"
	}
	if tables.Results == "" {
		tables.Results = "scan_results"
	}
	if tables.Businesses == "" {
		tables.Businesses = "businesses"
	}
	return &SupabaseScanRepository{client: client, tables: tables}
}

func (r *SupabaseScanRepository) InsertJobs(ctx context.Context, jobs []model.ScanJob) error {
	if len(jobs) == 0 {
		return nil
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		return model.NewStoreError("insert jobs", fmt.Errorf("ジョブのJSONマーシャル失敗: %w", err))
	}
	if _, _, err := r.client.GetClient().From(r.tables.Jobs).Insert(string(data), false, "", "", "").Execute(); err != nil {
		return model.NewStoreError("insert jobs", err)
	}
	return nil
}

func (r *SupabaseScanRepository) InsertResults(ctx context.Context, results []model.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return model.NewStoreError("insert results", fmt.Errorf("結果のJSONマーシャル失敗: %w", err))
	}
	if _, _, err := r.client.GetClient().From(r.tables.Results).Insert(string(data), false, "", "", "").Execute(); err != nil {
		return model.NewStoreError("insert results", err)
	}
	return nil
}

// UpsertBusiness は既存行のIDを引き継いでからgoogle_place_idでupsertする
func (r *SupabaseScanRepository) UpsertBusiness(ctx context.Context, b *model.Business) (string, error) {
	if b == nil || b.GooglePlaceID == "" {
		return "", model.NewStoreError("upsert business", fmt.Errorf("google_place_id is required"))
	}

	row := *b
	existingID, err := r.businessIDByPlace(b.GooglePlaceID)
	if err != nil {
		return "", model.NewStoreError("upsert business", err)
	}
	switch {
	case existingID != "":
		row.ID = existingID
	case row.ID == "":
		row.ID = uuid.New().String()
	}
	if row.AITags == nil {
		row.AITags = []string{}
	}

	data, err := json.Marshal(row)
	if err != nil {
		return "", model.NewStoreError("upsert business", fmt.Errorf("店舗のJSONマーシャル失敗: %w", err))
	}
	body, _, err := r.client.GetClient().From(r.tables.Businesses).
		Upsert(string(data), "google_place_id", "representation", "").
		Execute()
	if err != nil {
		return "", model.NewStoreError("upsert business", err)
	}

	var saved []model.Business
	if err := json.Unmarshal(body, &saved); err != nil || len(saved) == 0 {
		return row.ID, nil
	}
	return saved[0].ID, nil
}

func (r *SupabaseScanRepository) businessIDByPlace(placeID string) (string, error) {
	body, _, err := r.client.GetClient().From(r.tables.Businesses).
		Select("id", "", false).
		Eq("google_place_id", placeID).
		Execute()
	if err != nil {
		return "", err
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", fmt.Errorf("店舗IDのJSONアンマーシャル失敗: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ID, nil
}

// ListUnresolvedResults はジョブテーブルを内部結合して地区で絞り込む
func (r *SupabaseScanRepository) ListUnresolvedResults(ctx context.Context, district string, limit int) ([]model.ScanResult, error) {
	columns := "*"
	if district != "" {
		columns = fmt.Sprintf("*,%s!inner(district)", r.tables.Jobs)
	}
	query := r.client.GetClient().From(r.tables.Results).
		Select(columns, "", false).
		Is("google_place_id", "null")
	if district != "" {
		query = query.Eq(r.tables.Jobs+".district", district)
	}
	if limit > 0 {
		query = query.Limit(limit, "")
	}

	body, _, err := query.Execute()
	if err != nil {
		return nil, model.NewStoreError("list unresolved results", err)
	}
	var results []model.ScanResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, model.NewStoreError("list unresolved results", fmt.Errorf("結果のJSONアンマーシャル失敗: %w", err))
	}
	return results, nil
}

func (r *SupabaseScanRepository) UpdateResultLocation(ctx context.Context, resultID string, loc model.ResultLocation) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return model.NewStoreError("update result location", err)
	}
	if _, _, err := r.client.GetClient().From(r.tables.Results).Update(string(data), "", "").Eq("id", resultID).Execute(); err != nil {
		return model.NewStoreError("update result location", err)
	}
	return nil
}

func (r *SupabaseScanRepository) ListBusinesses(ctx context.Context, district string) ([]model.Business, error) {
	query := r.client.GetClient().From(r.tables.Businesses).Select("*", "", false)
	if district != "" {
		query = query.Eq("district", district)
	}
	body, _, err := query.Execute()
	if err != nil {
		return nil, model.NewStoreError("list businesses", err)
	}
	var businesses []model.Business
	if err := json.Unmarshal(body, &businesses); err != nil {
		return nil, model.NewStoreError("list businesses", fmt.Errorf("店舗のJSONアンマーシャル失敗: %w", err))
	}
	return businesses, nil
}

// Close Supabaseクライアントは接続を保持しない
func (r *SupabaseScanRepository) Close() error {
	return nil
}
