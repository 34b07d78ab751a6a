package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"GoldEater/internal/domain/model"
)

// FirestoreRunReportRepository ランレポートをFirestoreに保存するリポジトリ
type FirestoreRunReportRepository struct {
	client     *firestore.Client
	collection string
	logger     *zap.Logger
}

// NewFirestoreRunReportRepository 新しいFirestoreRunReportRepositoryを作成
func NewFirestoreRunReportRepository(client *firestore.Client, collection string, logger *zap.Logger) *FirestoreRunReportRepository {
	if collection == "" {
		collection = "scanRuns"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreRunReportRepository{client: client, collection: collection, logger: logger}
}

// Save はrun_idをドキュメントIDとして上書き保存する
func (r *FirestoreRunReportRepository) Save(ctx context.Context, report *model.RunReport) error {
	if report == nil || report.RunID == "" {
		return model.NewStoreError("save run report", fmt.Errorf("run id is required"))
	}
	if _, err := r.client.Collection(r.collection).Doc(report.RunID).Set(ctx, report); err != nil {
		r.logger.Error("failed to save run report", zap.String("run_id", report.RunID), zap.Error(err))
		return model.NewStoreError("save run report", err)
	}
	r.logger.Debug("run report saved", zap.String("run_id", report.RunID), zap.String("status", string(report.Status)))
	return nil
}

func (r *FirestoreRunReportRepository) Get(ctx context.Context, runID string) (*model.RunReport, error) {
	doc, err := r.client.Collection(r.collection).Doc(runID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, runID)
		}
		return nil, model.NewStoreError("get run report", err)
	}

	var report model.RunReport
	if err := doc.DataTo(&report); err != nil {
		return nil, model.NewStoreError("get run report", fmt.Errorf("データの変換に失敗しました: %w", err))
	}
	return &report, nil
}
