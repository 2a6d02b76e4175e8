package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"yampd/config"
	"yampd/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// CoverStore keeps album artwork.
type CoverStore interface {
	// PutCover stores the image and returns its object key.
	PutCover(ctx context.Context, albumID int64, data []byte, mime string) (string, error)
	// GetCover returns nil data and no error when key does not exist.
	GetCover(ctx context.Context, key string) ([]byte, string, error)
}

// BucketStats summarises the objects under a prefix.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// MinioCoverStore stores covers as objects under covers/ in one bucket.
type MinioCoverStore struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinioCoverStore connects to MinIO and creates the bucket if needed.
func NewMinioCoverStore(ctx context.Context, cfg *config.Config) (*MinioCoverStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	s := &MinioCoverStore{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	logger.Info("MinIO cover store ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return s, nil
}

func (s *MinioCoverStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", s.bucket, err)
	}
	logger.Info("Created MinIO bucket", logger.String("bucket", s.bucket))
	return nil
}

// CoverKey is the object key of an album cover.
func CoverKey(albumID int64, mime string) string {
	return fmt.Sprintf("covers/%d.%s", albumID, imageExt(mime))
}

func imageExt(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

func (s *MinioCoverStore) PutCover(ctx context.Context, albumID int64, data []byte, mime string) (string, error) {
	if mime == "" {
		mime = "image/jpeg"
	}
	key := CoverKey(albumID, mime)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mime,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload cover %s: %w", key, err)
	}
	return key, nil
}

func (s *MinioCoverStore) GetCover(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get cover %s: %w", key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("failed to stat cover %s: %w", key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read cover %s: %w", key, err)
	}
	return data, info.ContentType, nil
}

// Stats walks every object under prefix.
func (s *MinioCoverStore) Stats(ctx context.Context, prefix string) (*BucketStats, error) {
	stats := &BucketStats{}
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
	}
	return stats, nil
}

// FormatSize renders a byte count with a binary unit.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
