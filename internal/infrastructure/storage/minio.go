package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Anvita004/transcriptpro/pkg/config"
)

// TranscriptBackup mirrors finished transcript files into an object store so
// they survive the collector host. Disabled unless STORAGE_ENABLED is set;
// all callers treat a nil *TranscriptBackup as "no backup configured".
type TranscriptBackup struct {
	client *minio.Client
	bucket string
}

// NewTranscriptBackup creates the object-store client and makes sure the
// bucket exists.
func NewTranscriptBackup(cfg *config.StorageConfig) (*TranscriptBackup, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	backup := &TranscriptBackup{
		client: minioClient,
		bucket: cfg.BucketName,
	}

	if err := backup.ensureBucket(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return backup, nil
}

func (b *TranscriptBackup) ensureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// UploadTranscript stores the rendered transcript text under the meeting's
// file name, keyed by meeting id so collisions across meetings are impossible.
func (b *TranscriptBackup) UploadTranscript(ctx context.Context, meetingID, filename, content string) error {
	objectName := fmt.Sprintf("%s/%s", meetingID, filename)
	reader := bytes.NewReader([]byte(content))
	return b.upload(ctx, objectName, reader, int64(len(content)), "text/plain; charset=utf-8")
}

func (b *TranscriptBackup) upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// TranscriptURL returns a presigned download link for a backed-up transcript.
func (b *TranscriptBackup) TranscriptURL(ctx context.Context, meetingID, filename string, expiry time.Duration) (string, error) {
	objectName := fmt.Sprintf("%s/%s", meetingID, filename)
	url, err := b.client.PresignedGetObject(ctx, b.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url.String(), nil
}
