// Package artifacts uploads trained-model checkpoints to the models bucket,
// keyed by the project version that produced them.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

type Store struct {
	client *minio.Client
	bucket string
}

func NewStore(client *minio.Client, bucket string) (*Store, error) {
	if client == nil {
		return nil, errors.New("minio client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	return &Store{client: client, bucket: bucket}, nil
}

// ObjectKey names a checkpoint under its producing version.
func ObjectKey(version, path string) string {
	return fmt.Sprintf("%s/%s", version, filepath.Base(path))
}

// PushModel uploads the checkpoint file and returns its object key.
func (s *Store) PushModel(ctx context.Context, path, version string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("checkpoint path is required")
	}
	if strings.TrimSpace(version) == "" {
		return "", errors.New("version is required")
	}
	key := ObjectKey(version, path)
	_, err := s.client.FPutObject(ctx, s.bucket, key, path,
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("push model artifact: %w", err)
	}
	return key, nil
}
