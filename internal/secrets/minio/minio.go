// Package minio provides a MinIO implementation of secrets.Store.
//
// Each key is stored as one object under the configured bucket. Suited
// to headless deployments where the host has no local secret storage.
//
// Usage:
//
//	store, err := minio.New(ctx, &secrets.Config{
//	    Provider:  secrets.ProviderMinIO,
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "connshare-secrets",
//	})
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/koustreak/connshare/internal/secrets"
)

// Store is a MinIO implementation of secrets.Store.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	client *miniogo.Client
	bucket string
}

// New connects to MinIO using the provided Config and ensures the secrets
// bucket exists before returning.
func New(ctx context.Context, cfg *secrets.Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("secrets bucket name is empty")
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	s := &Store{client: client, bucket: cfg.Bucket}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check secrets bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, miniogo.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create secrets bucket: %w", err)
		}
	}

	return s, nil
}

// --- secrets.Store implementation ---

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(key), miniogo.GetObjectOptions{})
	if err != nil {
		return "", false, fmt.Errorf("get secret %q: %w", key, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read secret %q: %w", key, err)
	}
	return string(raw), true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	reader := bytes.NewReader([]byte(value))
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(key), reader, int64(reader.Len()),
		miniogo.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("store secret %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectKey(key), miniogo.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete secret %q: %w", key, err)
	}
	return nil
}

// Close is a no-op — the SDK client holds no persistent connections.
func (s *Store) Close() error { return nil }

// objectKey flattens a secret key into a legal object name.
func objectKey(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

// isNotFound reports whether err is an S3 "no such key/bucket" response.
func isNotFound(err error) bool {
	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		if resp.StatusCode == http.StatusNotFound {
			return true
		}
		switch resp.Code {
		case "NoSuchBucket", "NoSuchKey":
			return true
		}
	}
	return false
}
