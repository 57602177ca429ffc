package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"recbox/config"
	"recbox/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive mirrors finalized recordings into object storage. It is optional;
// save and delete paths treat archive failures as log-only.
type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive connects to the configured object store and ensures the bucket
// exists.
func NewArchive(cfg *config.Config) (*Archive, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("archive bucket created", logger.String("bucket", cfg.MinioBucket))
	}

	return &Archive{client: client, bucket: cfg.MinioBucket}, nil
}

// objectKey derives the archive key for a recording's audio file.
func objectKey(recordingID, locator string) string {
	return "recordings/" + recordingID + filepath.Ext(locator)
}

// Upload copies the finalized audio file for a recording into the bucket.
func (a *Archive) Upload(ctx context.Context, recordingID, locator string) error {
	key := objectKey(recordingID, locator)
	_, err := a.client.FPutObject(ctx, a.bucket, key, locator, minio.PutObjectOptions{
		ContentType: MimeType(locator),
	})
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", key, err)
	}
	logger.Info("recording archived",
		logger.String("id", recordingID),
		logger.String("key", key))
	return nil
}

// Remove deletes the archived copy for a recording. Missing objects are not
// an error.
func (a *Archive) Remove(ctx context.Context, recordingID, locator string) error {
	key := objectKey(recordingID, locator)
	err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove archived %s: %w", key, err)
	}
	return nil
}
