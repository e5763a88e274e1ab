package objectstore

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("object not found")

// Object is a stored blob.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Store is an image store addressed by key with public URLs.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PublicURL(key string) string
	Remove(ctx context.Context, key string) error
}

// Getter is implemented by stores whose objects this service serves itself.
type Getter interface {
	Get(ctx context.Context, key string) (Object, error)
}

// KeyFromURL returns the object key addressed by a public URL: its last
// path segment, unescaped.
func KeyFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	raw = strings.TrimRight(raw, "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}
