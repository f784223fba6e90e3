package snapshot

import (
	"context"
	"os"
	"path/filepath"
)

// LocalStore writes PNG bytes under a configured directory on disk.
type LocalStore struct {
	Dir string
}

// NewLocalStore builds a LocalStore rooted at dir, creating it if absent.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{Dir: dir}, nil
}

func (s *LocalStore) Save(_ context.Context, filename string, pngData []byte) (string, error) {
	path := filepath.Join(s.Dir, filename)
	if err := os.WriteFile(path, pngData, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
