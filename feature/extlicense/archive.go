package extlicense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"license-reconciler/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Archiver writes the raw fetched payload of a sync cycle to object
// storage as snapshots/<operation-id>.json, as an audit trail for merge
// decisions. Archiving is best-effort: a dead archive endpoint must not
// fail a sync.
type Archiver struct {
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewArchiver creates an archiver targeting the given bucket.
func NewArchiver(client storage.Client, bucket string, logger *zap.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, logger: logger}
}

// ArchiveSnapshot uploads the records fetched during one operation.
func (a *Archiver) ArchiveSnapshot(ctx context.Context, operationID string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	objectName := fmt.Sprintf("snapshots/%s.json", operationID)
	_, err = a.client.PutObject(
		ctx,
		a.bucket,
		objectName,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("failed to archive snapshot %s: %w", objectName, err)
	}

	a.logger.Info("Archived raw snapshot",
		zap.String("object", objectName),
		zap.Int("records", len(records)),
	)
	return nil
}
