package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSStorage mirrors generated images into a bucket under a fixed prefix.
type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Mirror = (*GCSStorage)(nil)

func NewGCSStorage(ctx context.Context, bucket, prefix string) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) objectName(localPath string) string {
	return path.Join(s.prefix, filepath.Base(localPath))
}

func (s *GCSStorage) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	name := s.objectName(localPath)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		w.ContentType = ct
	}

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", name, err)
	}

	return fmt.Sprintf("gs://%s/%s", s.bucket, name), nil
}

func (s *GCSStorage) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{Prefix: s.prefix}

	var names []string
	it := s.client.Bucket(s.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		if isImage(attrs.Name) {
			names = append(names, fmt.Sprintf("gs://%s/%s", s.bucket, attrs.Name))
		}
	}

	return names, nil
}
