package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"GoldEater/internal/domain/model"
)

// FileRunReportRepository ランレポートを <dir>/<run_id>.json として保存する
type FileRunReportRepository struct {
	dir string
	mu  sync.Mutex
}

func NewFileRunReportRepository(dir string) *FileRunReportRepository {
	return &FileRunReportRepository{dir: dir}
}

func (r *FileRunReportRepository) Save(ctx context.Context, report *model.RunReport) error {
	if report == nil || report.RunID == "" {
		return model.NewStoreError("save run report", fmt.Errorf("run id is required"))
	}
	path, err := r.path(report.RunID)
	if err != nil {
		return model.NewStoreError("save run report", err)
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return model.NewStoreError("save run report", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return model.NewStoreError("save run report", err)
	}
	// 途中で読まれても壊れたJSONを返さないよう一時ファイル経由で置き換える
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o644); err != nil {
		return model.NewStoreError("save run report", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return model.NewStoreError("save run report", err)
	}
	return nil
}

func (r *FileRunReportRepository) Get(ctx context.Context, runID string) (*model.RunReport, error) {
	path, err := r.path(runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, model.NewStoreError("get run report", err)
	}

	var report model.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, model.NewStoreError("get run report", err)
	}
	return &report, nil
}

func (r *FileRunReportRepository) path(runID string) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || strings.Contains(runID, "..") {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	return filepath.Join(r.dir, runID+".json"), nil
}
