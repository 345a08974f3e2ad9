package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store uploads generated migration files to an S3-compatible object store.
// It only ever writes files; nothing here executes SQL.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// Config holds the object store connection settings
type Config struct {
	Endpoint  string // server endpoint (e.g. localhost:9000)
	AccessKey string // access key (username)
	SecretKey string // secret key (password)
	Bucket    string // target bucket for migration files
	Region    string // region (default: us-east-1)
	UseSSL    bool   // use HTTPS (default: false for local)
	Prefix    string // object key prefix (e.g. migrations/)
}

// NewStore creates a new Store and ensures the target bucket exists
func NewStore(ctx context.Context, config *Config) (*Store, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.AccessKey == "" {
		return nil, fmt.Errorf("access key is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("secret key is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
		Region: config.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	store := &Store{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
	}

	if err := store.ensureBucket(ctx, config.Region); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) ensureBucket(ctx context.Context, region string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Upload writes one migration file under the configured prefix
func (s *Store) Upload(ctx context.Context, name string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	key := s.ObjectKey(name)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/sql",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Bucket returns the target bucket name
func (s *Store) Bucket() string {
	return s.bucket
}

// ObjectKey returns the full object key for a file name, prefix included
func (s *Store) ObjectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}
