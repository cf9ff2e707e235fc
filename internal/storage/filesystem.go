package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore persists assets onto the local filesystem and serves them from a
// public base URL. It is intended for development and single-node deployments
// where an object storage service is not available.
type FileStore struct {
	basePath      string
	publicBaseURL string
}

var _ BlobStore = (*FileStore)(nil)

// assetMeta is written next to each asset so a static file server can replay
// the intended response headers.
type assetMeta struct {
	ContentType  string `json:"contentType"`
	CacheControl string `json:"cacheControl"`
}

// NewFileStore initializes a FileStore rooted at basePath whose assets are
// reachable under publicBaseURL.
func NewFileStore(basePath, publicBaseURL string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	publicBaseURL = strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if publicBaseURL == "" {
		return nil, errors.New("storage: public base URL is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, publicBaseURL: publicBaseURL}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	return s.basePath
}

// Upload writes the payload at the given key and returns its public URL. Keys
// are cleaned to prevent directory traversal.
func (s *FileStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write asset: %w", err)
	}

	meta := assetMeta{ContentType: contentType, CacheControl: DefaultCacheControl}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("storage: marshal asset metadata: %w", err)
	}
	if err := os.WriteFile(fullPath+".meta.json", metaBytes, 0o644); err != nil {
		return "", fmt.Errorf("storage: write asset metadata: %w", err)
	}

	return s.publicBaseURL + "/" + cleanKey, nil
}

// sanitizeKey normalizes a storage key and rejects anything that would escape
// the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(strings.TrimLeft(key, "/"))
	if key == "" {
		return "", ErrEmptyKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
