package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cmrp/utils"
)

// LocalStore writes uploads below basePath; they are served under urlPrefix
type LocalStore struct {
	basePath  string
	urlPrefix string
}

// NewLocalStore creates a disk-backed store
func NewLocalStore(basePath, urlPrefix string) *LocalStore {
	if basePath == "" {
		basePath = "uploads"
	}
	return &LocalStore{basePath: basePath, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}
}

// BasePath is the directory the HTTP layer serves statically
func (s *LocalStore) BasePath() string {
	return s.basePath
}

// URLPrefix is the path uploads are served under
func (s *LocalStore) URLPrefix() string {
	return s.urlPrefix
}

// Save writes the file under prefix with a random name
func (s *LocalStore) Save(ctx context.Context, prefix string, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := utils.ObjectKey(prefix, extensionFor(f))
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(fullPath, f.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write upload %s: %w", key, err)
	}
	return s.urlPrefix + "/" + key, nil
}
