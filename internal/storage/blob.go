// Package storage provides durable blob storage for generated image assets.
package storage

import (
	"context"
	"errors"
)

// Common storage errors.
var (
	ErrEmptyKey     = errors.New("storage: key cannot be empty")
	ErrInvalidKey   = errors.New("storage: key escapes the storage root")
	ErrEmptyPayload = errors.New("storage: payload cannot be empty")
)

// DefaultCacheControl is applied to every uploaded asset. Assets are written
// once under a fresh unique key, so they can be cached for a year.
const DefaultCacheControl = "public, max-age=31536000, immutable"

// BlobStore persists an asset under a key and returns a publicly readable URL
// for it. Implementations must treat keys as opaque and immutable: a key is
// never written twice.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (publicURL string, err error)
}
