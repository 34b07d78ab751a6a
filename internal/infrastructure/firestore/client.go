package firestore

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FirestoreClient ランレポート保存用のFirestoreクライアント
type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient プロジェクトIDと認証ファイルからクライアントを作成する。
// Cloud Run上、または認証ファイルが存在しない場合はデフォルト認証を使う。
func NewFirestoreClient(ctx context.Context, projectID, credentialsFile string, logger *zap.Logger) (*FirestoreClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project id が設定されていません")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	isCloudRun := os.Getenv("K_SERVICE") != ""
	if !isCloudRun && credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			logger.Warn("credentials file not found, falling back to default auth",
				zap.String("file", credentialsFile))
		} else {
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	logger.Info("firestore client initialized",
		zap.String("project", projectID),
		zap.Bool("cloud_run", isCloudRun),
		zap.Bool("credentials_file", len(opts) > 0))

	return &FirestoreClient{client: client}, nil
}

func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}

func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}
