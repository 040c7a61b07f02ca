package service

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/aidyn-m/qazexam/config"
)

// AudioStorage stores uploaded speaking recordings and reads them back for
// grading. Keys are opaque object names, not URLs.
type AudioStorage interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Fetch(ctx context.Context, objectKey string) ([]byte, string, error)
}

// NewAudioObjectKey builds a fresh object key for a speaking recording.
func NewAudioObjectKey(ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	return path.Join("exams", "speaking", uuid.NewString()+ext)
}

type minioAudioStorage struct {
	client *minio.Client
	bucket string
}

func NewMinioAudioStorage(cfg *config.Config) (AudioStorage, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Storage.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Storage.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Storage.Bucket, err)
		}
		log.Info().Str("bucket", cfg.Storage.Bucket).Msg("Created storage bucket")
	}

	return &minioAudioStorage{client: client, bucket: cfg.Storage.Bucket}, nil
}

func (s *minioAudioStorage) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to store object %s: %w", objectKey, err)
	}
	return nil
}

func (s *minioAudioStorage) Fetch(ctx context.Context, objectKey string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open object %s: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", objectKey, err)
	}
	stat, err := obj.Stat()
	if err != nil {
		return data, "", nil
	}
	return data, stat.ContentType, nil
}
