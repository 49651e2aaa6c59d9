// Package publish uploads output artifacts to an S3-compatible bucket.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config configures the bucket artifacts are published to.
type Config struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	Secure    bool   `json:"secure" yaml:"secure"`
}

// Validate reports the first missing required field.
func (c Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("publish: endpoint is required")
	case c.Bucket == "":
		return fmt.Errorf("publish: bucket is required")
	}
	return nil
}

// Publisher uploads files under <prefix>/<run id>/<file name>.
type Publisher struct {
	client *minio.Client
	bucket string
	prefix string
}

func New(cfg Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &Publisher{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// ObjectKey is the key a file is stored under for a run.
func ObjectKey(prefix, runID, file string) string {
	parts := []string{}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, runID, filepath.Base(file))
	return path.Join(parts...)
}

// Publish uploads every file and returns the object keys in order. It stops
// at the first failed upload.
func (p *Publisher) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return nil, fmt.Errorf("s3 bucket exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("s3 bucket %q does not exist", p.bucket)
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		key := ObjectKey(p.prefix, runID, f)
		info, err := p.client.FPutObject(ctx, p.bucket, key, f, minio.PutObjectOptions{
			ContentType: contentType(f),
		})
		if err != nil {
			return keys, fmt.Errorf("s3 put object %s: %w", key, err)
		}
		slog.Info("published artifact", "bucket", p.bucket, "key", key, "size", info.Size)
		keys = append(keys, key)
	}
	return keys, nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
