package snapshot

import (
	"context"

	"github.com/shreyahuja108/sentryfeed/internal/s3"
)

// MinioStore uploads snapshot PNGs to a configured MinIO bucket instead of
// (or alongside) the local disk, built on s3.Client.PutObject.
type MinioStore struct {
	client *s3.Client
	bucket string
}

// NewMinioStore returns a Store backed by client, creating bucket if
// necessary.
func NewMinioStore(ctx context.Context, client *s3.Client, bucket string) (*MinioStore, error) {
	if err := client.EnsureBucket(ctx, bucket); err != nil {
		return nil, err
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) Save(ctx context.Context, filename string, pngData []byte) (string, error) {
	return s.client.PutObject(ctx, s.bucket, filename, pngData, "image/png")
}
