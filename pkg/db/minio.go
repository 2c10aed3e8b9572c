package db

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"studio-monitoring/pkg/config"
	"studio-monitoring/pkg/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	ArchiveBucketName = "monitoring-archive"
	CompressionLevel  = gzip.BestSpeed
)

type MinioClient struct {
	*minio.Client
}

func NewMinioClient(cfg *config.Config) (*MinioClient, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// Verify connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to list MinIO buckets: %w", err)
	}

	// Ensure the archive bucket exists
	if err := client.MakeBucket(ctx, ArchiveBucketName, minio.MakeBucketOptions{}); err != nil {
		exists, errBucketExists := client.BucketExists(ctx, ArchiveBucketName)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("failed to create archive bucket: %w", err)
		}
	}

	return &MinioClient{client}, nil
}

func (m *MinioClient) HealthCheck(ctx context.Context) error {
	_, err := m.ListBuckets(ctx)
	return err
}

func (m *MinioClient) Close() {
	// MinIO client doesn't require explicit close
}

// ArchiveStorage exports aged monitoring rows to object storage before they
// are pruned from Postgres.
type ArchiveStorage struct {
	client *minio.Client
}

func NewArchiveStorage(client *minio.Client) *ArchiveStorage {
	return &ArchiveStorage{client: client}
}

// StoreHealthChecks writes a batch of health-check rows as a compressed
// JSON-lines object keyed by collection and day.
func (as *ArchiveStorage) StoreHealthChecks(ctx context.Context, date time.Time, checks []models.HealthCheck) error {
	if len(checks) == 0 {
		return nil
	}

	rows := make([]interface{}, len(checks))
	for i := range checks {
		rows[i] = checks[i]
	}

	objectName := fmt.Sprintf("health-checks/%s/%d.jsonl.gz", date.Format("2006/01/02"), date.UnixNano())
	return as.store(ctx, objectName, rows)
}

// StoreMetrics writes a batch of performance-metric rows as a compressed
// JSON-lines object keyed by collection and day.
func (as *ArchiveStorage) StoreMetrics(ctx context.Context, date time.Time, metrics []models.PerformanceMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	rows := make([]interface{}, len(metrics))
	for i := range metrics {
		rows[i] = metrics[i]
	}

	objectName := fmt.Sprintf("performance-metrics/%s/%d.jsonl.gz", date.Format("2006/01/02"), date.UnixNano())
	return as.store(ctx, objectName, rows)
}

func (as *ArchiveStorage) store(ctx context.Context, objectName string, rows []interface{}) error {
	var buf bytes.Buffer
	gzipWriter, err := gzip.NewWriterLevel(&buf, CompressionLevel)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}

	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			gzipWriter.Close()
			return fmt.Errorf("failed to marshal archive row: %w", err)
		}
		if _, err := gzipWriter.Write(append(line, '\n')); err != nil {
			gzipWriter.Close()
			return fmt.Errorf("failed to write archive row: %w", err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip stream: %w", err)
	}

	_, err = as.client.PutObject(ctx, ArchiveBucketName, objectName, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType:     "application/x-ndjson",
		ContentEncoding: "gzip",
	})
	if err != nil {
		return fmt.Errorf("failed to store archive object %s: %w", objectName, err)
	}

	return nil
}
