package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ruteri/credential-registry/interfaces"
)

// MinIOBackend stores documents in a MinIO (or other S3-compatible) bucket.
// It is safe for concurrent use by multiple goroutines.
type MinIOBackend struct {
	client      *minio.Client
	bucket      string
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewMinIOBackend connects to endpoint and ensures the bucket exists, creating it if missing.
func NewMinIOBackend(ctx context.Context, endpoint, bucket, prefix, accessKey, secretKey string, useSSL bool, log *slog.Logger) (*MinIOBackend, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: minio endpoint is required", interfaces.ErrInvalidLocationURI)
	}
	if bucket == "" {
		return nil, fmt.Errorf("%w: minio bucket is required", interfaces.ErrInvalidLocationURI)
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("%w: check bucket existence: %v", interfaces.ErrStoreUnavailable, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		log.Info("Created MinIO bucket", slog.String("bucket", bucket))
	}

	return &MinIOBackend{
		client:      cli,
		bucket:      bucket,
		prefix:      strings.Trim(prefix, "/"),
		log:         log,
		locationURI: fmt.Sprintf("minio://%s/%s/%s", endpoint, bucket, prefix),
	}, nil
}

func isMinIONotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

// Store uploads data under its content address.
func (m *MinIOBackend) Store(ctx context.Context, data []byte, contentType string) (interfaces.ContentAddress, error) {
	addr, err := interfaces.ComputeAddress(data)
	if err != nil {
		return "", err
	}

	_, err = m.client.PutObject(ctx, m.bucket, m.objectKey(addr), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: put object: %v", interfaces.ErrStoreUnavailable, err)
	}

	m.log.Debug("Stored content in MinIO",
		slog.String("bucket", m.bucket),
		slog.String("contentAddress", addr.String()))

	return addr, nil
}

// Fetch downloads the object for addr.
func (m *MinIOBackend) Fetch(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.objectKey(addr), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: get object: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isMinIONotFound(err) {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("%w: read object: %v", interfaces.ErrStoreUnavailable, err)
	}
	return data, nil
}

// Exists stats the object for addr.
func (m *MinIOBackend) Exists(ctx context.Context, addr interfaces.ContentAddress) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, m.objectKey(addr), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isMinIONotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat object: %v", interfaces.ErrStoreUnavailable, err)
}

// PresignGet generates a pre-signed URL for GET with the specified expiry.
func (m *MinIOBackend) PresignGet(ctx context.Context, addr interfaces.ContentAddress, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, m.objectKey(addr), ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Available checks that the bucket is reachable.
func (m *MinIOBackend) Available(ctx context.Context) bool {
	ok, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		m.log.Warn("MinIO backend unavailable", slog.String("bucket", m.bucket), "err", err)
		return false
	}
	return ok
}

// Name returns a unique identifier for this storage backend.
func (m *MinIOBackend) Name() string {
	return fmt.Sprintf("minio-%s", m.bucket)
}

// LocationURI returns the URI that identifies this storage backend.
func (m *MinIOBackend) LocationURI() string {
	return m.locationURI
}

func (m *MinIOBackend) objectKey(addr interfaces.ContentAddress) string {
	if m.prefix == "" {
		return addr.String()
	}
	return path.Join(m.prefix, addr.String())
}
