// Package objstore wraps the MinIO client used for document and invoice files.
package objstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/cargolink/portal-backend/internal/config"
)

// Client is a thin wrapper around the MinIO SDK with the portal's buckets baked in.
type Client struct {
	mc      *minio.Client
	buckets []string
}

// NewClient creates a MinIO client from storage configuration
func NewClient(cfg config.StorageConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage access key and secret key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Client{
		mc: mc,
		buckets: []string{
			cfg.DocumentsBucket,
			cfg.InvoicesBucket,
			cfg.VerificationBucket,
		},
	}, nil
}

// EnsureBuckets creates any of the portal buckets that do not exist yet
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range c.buckets {
		exists, err := c.mc.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if exists {
			continue
		}
		if err := c.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		logrus.WithField("bucket", bucket).Info("Created storage bucket")
	}
	return nil
}

// Upload stores an object under the given bucket and key
func (c *Client) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.mc.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Download opens an object for reading. The caller must close the returned ReadCloser.
func (c *Client) Download(ctx context.Context, bucket, key string) (io.ReadCloser, *minio.ObjectInfo, error) {
	obj, err := c.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	// GetObject is lazy; Stat surfaces missing-object errors up front
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, nil, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	return obj, &info, nil
}

// PresignedGet returns a time-limited URL for fetching an object directly,
// for clients that should not proxy large files through the API.
func (c *Client) PresignedGet(ctx context.Context, bucket, key string, expiry time.Duration, downloadName string) (string, error) {
	params := make(url.Values)
	if downloadName != "" {
		params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	u, err := c.mc.PresignedGetObject(ctx, bucket, key, expiry, params)
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

// Exists reports whether an object is present
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.mc.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove deletes an object
func (c *Client) Remove(ctx context.Context, bucket, key string) error {
	if err := c.mc.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
	}
	return nil
}
