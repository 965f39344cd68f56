package storage

import (
	"context"
	"fmt"
	"net/url"
	"time"

	c "github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// S3Storage implements IStorage for MinIO and any S3-compatible provider.
type S3Storage struct {
	BucketName       string
	InternalEndpoint string
	ExternalEndpoint string
	Region           string
	storage          *minio.Client
}

// NewS3Storage connects to the bucket. When createBucket is set a missing bucket is
// created, otherwise it is an error.
func NewS3Storage(config *models.S3StorageConfiguration, createBucket bool) (*S3Storage, error) {
	minioOptions := &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseTLS,
		Region: config.Region,
	}

	if config.ForcePathStyle {
		minioOptions.BucketLookup = minio.BucketLookupPath
	}

	minioClient, err := minio.New(config.Endpoint, minioOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage: %w", err)
	}

	if !exists {
		if !createBucket {
			return nil, fmt.Errorf("bucket %q does not exist", config.BucketName)
		}
		if err = minioClient.MakeBucket(ctx, config.BucketName, minio.MakeBucketOptions{Region: config.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", config.BucketName, err)
		}
		zap.L().Info("Created storage bucket", zap.String("bucket", config.BucketName))
	}

	return &S3Storage{
		BucketName:       config.BucketName,
		InternalEndpoint: config.Endpoint,
		ExternalEndpoint: config.ExternalEndpoint,
		Region:           config.Region,
		storage:          minioClient,
	}, nil
}

// replaceEndpoint swaps the internal host for the external one so browsers can reach
// presigned URLs.
func (s *S3Storage) replaceEndpoint(urlString string) string {
	if s.ExternalEndpoint == "" || s.InternalEndpoint == s.ExternalEndpoint {
		return urlString
	}

	presignedURL, err := url.Parse(urlString)
	if err != nil {
		zap.L().Warn("failed to parse presigned URL, using original", zap.Error(err))
		return urlString
	}

	externalURL, err := url.Parse(s.ExternalEndpoint)
	if err != nil {
		zap.L().Warn("failed to parse external endpoint, using original URL", zap.Error(err))
		return urlString
	}

	presignedURL.Scheme = externalURL.Scheme
	presignedURL.Host = externalURL.Host

	return presignedURL.String()
}

func (s *S3Storage) GetBucketName() string {
	return s.BucketName
}

func (s *S3Storage) PresignedGetObject(objectPath string) (string, error) {
	presignedURL, err := s.storage.PresignedGetObject(
		context.Background(),
		s.BucketName,
		objectPath,
		c.UploadPolicyExpirationInMinutes*time.Minute,
		nil,
	)
	if err != nil {
		return "", err
	}

	return s.replaceEndpoint(presignedURL.String()), nil
}

func (s *S3Storage) PresignedPutObject(objectPath string, expiry time.Duration) (string, error) {
	presignedURL, err := s.storage.PresignedPutObject(context.Background(), s.BucketName, objectPath, expiry)
	if err != nil {
		return "", err
	}

	return s.replaceEndpoint(presignedURL.String()), nil
}

func (s *S3Storage) StatObject(objectPath string) (map[string]string, error) {
	object, err := s.storage.StatObject(
		context.Background(),
		s.BucketName,
		objectPath,
		minio.StatObjectOptions{},
	)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"content_type": object.ContentType,
		"size":         fmt.Sprintf("%d", object.Size),
	}, nil
}

func (s *S3Storage) ListObjects(prefix string, maxKeys int32) ([]string, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   int(maxKeys),
	}

	var objects []string

	for object := range s.storage.ListObjects(context.Background(), s.BucketName, opts) {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, object.Key)
	}

	return objects, nil
}

func (s *S3Storage) RemoveObject(objectPath string) error {
	return s.storage.RemoveObject(
		context.Background(),
		s.BucketName,
		objectPath,
		minio.RemoveObjectOptions{},
	)
}

func (s *S3Storage) RemoveObjects(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	// S3 accepts at most 1000 keys per DeleteObjects call
	for i := 0; i < len(paths); i += c.BulkActionsLimit {
		end := min(i+c.BulkActionsLimit, len(paths))

		batch := paths[i:end]
		objectsCh := make(chan minio.ObjectInfo, len(batch))

		for _, p := range batch {
			objectsCh <- minio.ObjectInfo{Key: p}
		}
		close(objectsCh)

		errorCh := s.storage.RemoveObjects(context.Background(), s.BucketName, objectsCh, minio.RemoveObjectsOptions{})

		for err := range errorCh {
			if err.Err != nil {
				zap.L().Error("Failed to delete object",
					zap.String("key", err.ObjectName),
					zap.Int("batchStart", i),
					zap.Error(err.Err))
				return err.Err
			}
		}
	}

	return nil
}
