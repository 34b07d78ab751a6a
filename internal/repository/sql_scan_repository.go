package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"GoldEater/internal/domain/model"
)

// sqlScanRepository はSQLiteとPostgreSQLで共有するdatabase/sql実装。
// クエリは ? プレースホルダで書き、rebind で方言に変換する。
type sqlScanRepository struct {
	db      *sql.DB
	rebind  func(string) string
	closeFn func() error
}

func questionPlaceholders(q string) string { return q }

// dollarPlaceholders は ? を $1, $2, ... に置き換える
func dollarPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (r *sqlScanRepository) InsertJobs(ctx context.Context, jobs []model.ScanJob) error {
	if len(jobs) == 0 {
		return nil
	}
	query := r.rebind(`INSERT INTO scan_jobs (
		id, h3_index, grid_center_lat, grid_center_lng, district, prompt_type,
		system_prompt_version, platform, model_version, scan_run_id, tap_number,
		user_prompt_template, tokens_used, scanned_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, j := range jobs {
			var tokens sql.NullInt64
			if j.TokensUsed != nil {
				tokens = sql.NullInt64{Int64: int64(*j.TokensUsed), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				j.ID, j.H3Index, j.GridCenterLat, j.GridCenterLng, j.District, j.PromptType,
				j.SystemPromptVersion, j.Platform, j.ModelVersion, j.RunID, j.TapNumber,
				nullString(j.UserPrompt), tokens, j.ScannedAt.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("job %s: %w", j.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.NewStoreError("insert jobs", err)
	}
	return nil
}

func (r *sqlScanRepository) InsertResults(ctx context.Context, results []model.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	query := r.rebind(`INSERT INTO scan_results (
		id, job_id, raw_name, rank_position, reasoning, vibe_tags, negative_flags,
		citation_urls, citation_count, raw_json_response, business_id, normalized_name,
		business_lat, business_lng, business_address, google_place_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, res := range results {
			var citationCount sql.NullInt64
			if res.CitationCount != nil {
				citationCount = sql.NullInt64{Int64: int64(*res.CitationCount), Valid: true}
			}
			var rawJSON sql.NullString
			if len(res.RawJSON) > 0 {
				rawJSON = sql.NullString{String: string(res.RawJSON), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				res.ID, res.JobID, res.RawName, res.RankPosition, nullString(res.Reasoning),
				jsonList(res.VibeTags), jsonList(res.NegativeFlags), jsonList(res.CitationURLs),
				citationCount, rawJSON, derefNullString(res.BusinessID), derefNullString(res.NormalizedName),
				derefNullFloat(res.BusinessLat), derefNullFloat(res.BusinessLng),
				derefNullString(res.BusinessAddress), derefNullString(res.GooglePlaceID),
			); err != nil {
				return fmt.Errorf("result %s: %w", res.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return model.NewStoreError("insert results", err)
	}
	return nil
}

// UpsertBusiness はgoogle_place_idで冪等に保存し、既存行があればそのIDを返す
func (r *sqlScanRepository) UpsertBusiness(ctx context.Context, b *model.Business) (string, error) {
	if b == nil || b.GooglePlaceID == "" {
		return "", model.NewStoreError("upsert business", errors.New("google_place_id is required"))
	}
	id := b.ID
	if id == "" {
		id = uuid.New().String()
	}

	query := r.rebind(`INSERT INTO businesses (
		id, google_place_id, official_name, address, lat, lng, district, h3_index,
		cuisine, category, price_range, description, ai_tags
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (google_place_id) DO UPDATE SET
		official_name = excluded.official_name,
		address = excluded.address,
		lat = excluded.lat,
		lng = excluded.lng,
		district = excluded.district,
		h3_index = excluded.h3_index,
		cuisine = excluded.cuisine,
		category = excluded.category,
		price_range = excluded.price_range,
		description = excluded.description,
		ai_tags = excluded.ai_tags
	RETURNING id`)

	var savedID string
	err := r.db.QueryRowContext(ctx, query,
		id, b.GooglePlaceID, b.OfficialName, b.Address, b.Lat, b.Lng, b.District,
		nullString(b.H3Index), derefNullString(b.Cuisine), derefNullString(b.Category),
		derefNullString(b.PriceRange), derefNullString(b.Description), jsonList(b.AITags),
	).Scan(&savedID)
	if err != nil {
		return "", model.NewStoreError("upsert business", err)
	}
	return savedID, nil
}

// ListUnresolvedResults は位置情報が未補完の結果を取得する。district が空なら全地区。
func (r *sqlScanRepository) ListUnresolvedResults(ctx context.Context, district string, limit int) ([]model.ScanResult, error) {
	var (
		where []string
		args  []any
	)
	where = append(where, "r.google_place_id IS NULL")
	if district != "" {
		where = append(where, "j.district = ?")
		args = append(args, district)
	}
	query := `SELECT r.id, r.job_id, r.raw_name, r.rank_position, r.reasoning,
		r.vibe_tags, r.negative_flags, r.citation_urls, r.citation_count, r.raw_json_response
		FROM scan_results r JOIN scan_jobs j ON j.id = r.job_id
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY j.scanned_at, r.rank_position, r.id`
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, model.NewStoreError("list unresolved results", err)
	}
	defer rows.Close()

	var results []model.ScanResult
	for rows.Next() {
		var (
			res                           model.ScanResult
			reasoning, rawJSON            sql.NullString
			vibeTags, negFlags, citations string
			citationCount                 sql.NullInt64
		)
		if err := rows.Scan(&res.ID, &res.JobID, &res.RawName, &res.RankPosition, &reasoning,
			&vibeTags, &negFlags, &citations, &citationCount, &rawJSON); err != nil {
			return nil, model.NewStoreError("list unresolved results", err)
		}
		res.Reasoning = reasoning.String
		res.VibeTags = parseJSONList(vibeTags)
		res.NegativeFlags = parseJSONList(negFlags)
		res.CitationURLs = parseJSONList(citations)
		if citationCount.Valid {
			n := int(citationCount.Int64)
			res.CitationCount = &n
		}
		if rawJSON.Valid {
			res.RawJSON = json.RawMessage(rawJSON.String)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("list unresolved results", err)
	}
	return results, nil
}

func (r *sqlScanRepository) UpdateResultLocation(ctx context.Context, resultID string, loc model.ResultLocation) error {
	query := r.rebind(`UPDATE scan_results SET
		business_id = ?, normalized_name = ?, business_lat = ?, business_lng = ?,
		business_address = ?, google_place_id = ?
		WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query,
		nullString(loc.BusinessID), nullString(loc.NormalizedName), loc.Lat, loc.Lng,
		nullString(loc.Address), nullString(loc.GooglePlaceID), resultID)
	if err != nil {
		return model.NewStoreError("update result location", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.NewStoreError("update result location", fmt.Errorf("result %s not found", resultID))
	}
	return nil
}

// ListBusinesses は地区内の店舗を名前順で返す。district が空なら全地区。
func (r *sqlScanRepository) ListBusinesses(ctx context.Context, district string) ([]model.Business, error) {
	query := `SELECT id, google_place_id, official_name, address, lat, lng, district,
		h3_index, cuisine, category, price_range, description, ai_tags FROM businesses`
	var args []any
	if district != "" {
		query += " WHERE district = ?"
		args = append(args, district)
	}
	query += " ORDER BY official_name, google_place_id"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, model.NewStoreError("list businesses", err)
	}
	defer rows.Close()

	var businesses []model.Business
	for rows.Next() {
		var (
			b                                   model.Business
			h3Index                             sql.NullString
			cuisine, category, priceRange, desc sql.NullString
			aiTags                              string
		)
		if err := rows.Scan(&b.ID, &b.GooglePlaceID, &b.OfficialName, &b.Address, &b.Lat, &b.Lng,
			&b.District, &h3Index, &cuisine, &category, &priceRange, &desc, &aiTags); err != nil {
			return nil, model.NewStoreError("list businesses", err)
		}
		b.H3Index = h3Index.String
		b.Cuisine = nullStringPtr(cuisine)
		b.Category = nullStringPtr(category)
		b.PriceRange = nullStringPtr(priceRange)
		b.Description = nullStringPtr(desc)
		b.AITags = parseJSONList(aiTags)
		businesses = append(businesses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, model.NewStoreError("list businesses", err)
	}
	return businesses, nil
}

func (r *sqlScanRepository) Close() error {
	if r.closeFn != nil {
		return r.closeFn()
	}
	return nil
}

func (r *sqlScanRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func derefNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func derefNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func jsonList(values []string) string {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func parseJSONList(data string) []string {
	out := []string{}
	if data == "" {
		return out
	}
	_ = json.Unmarshal([]byte(data), &out)
	return out
}
