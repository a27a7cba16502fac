package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/config"
)

// Minio stores blobs as objects of a single bucket. Paths are object keys.
type Minio struct {
	client *minio.Client
	bucket string
	region string
}

// NewMinio creates a MinIO client from the Config.
func NewMinio(cfg *config.Config) (*Minio, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Minio{client: client, bucket: cfg.S3Bucket, region: cfg.S3Region}, nil
}

// EnsureBucket makes sure the bucket exists before use.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", m.bucket, err)
		}
	}
	return nil
}

func (m *Minio) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := m.PutAt(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

func (m *Minio) PutAt(ctx context.Context, path string, data []byte) error {
	opts := minio.PutObjectOptions{ContentType: "application/octet-stream"}
	_, err := m.client.PutObject(ctx, m.bucket, path, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (m *Minio) Get(ctx context.Context, path string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return buf, nil
}

func (m *Minio) Exists(ctx context.Context, path string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
