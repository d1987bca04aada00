package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrStudioImageNotFound is returned for unknown ids and for entries whose
// TTL has elapsed; an expired image is indistinguishable from a missing one.
var ErrStudioImageNotFound = errors.New("storage: studio image not found")

// StudioStore keeps previously captured "studio" photos of the user on local
// disk so the extension can re-use them across try-on requests without
// re-uploading. Files are named studio-<id>.<ext>; the id is freshly
// generated on every save, so each file has a single writer and no
// contention arises.
type StudioStore struct {
	basePath string
	ttl      time.Duration
}

var extByMime = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/avif": "avif",
}

var mimeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"avif": "image/avif",
}

// NewStudioStore initializes a store rooted at basePath. Entries older than
// ttl are treated as absent and removed lazily on read; a sweep also runs on
// every save.
func NewStudioStore(basePath string, ttl time.Duration) (*StudioStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if ttl <= 0 {
		return nil, errors.New("storage: ttl must be positive")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &StudioStore{basePath: basePath, ttl: ttl}, nil
}

// Save persists the image bytes and returns the generated identifier.
func (s *StudioStore) Save(ctx context.Context, mimeType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext, ok := extByMime[strings.ToLower(mimeType)]
	if !ok {
		return "", fmt.Errorf("storage: unsupported mime type %s", mimeType)
	}
	if len(data) == 0 {
		return "", errors.New("storage: empty image data")
	}
	s.sweep()

	id := uuid.NewString()
	path := filepath.Join(s.basePath, fileName(id, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write studio image: %w", err)
	}
	return id, nil
}

// Load returns the image bytes and mime type for the given id.
func (s *StudioStore) Load(ctx context.Context, id string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", ErrStudioImageNotFound
	}
	for ext, mime := range mimeByExt {
		path := filepath.Join(s.basePath, fileName(id, ext))
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > s.ttl {
			_ = os.Remove(path)
			return nil, "", ErrStudioImageNotFound
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("storage: read studio image: %w", err)
		}
		return data, mime, nil
	}
	return nil, "", ErrStudioImageNotFound
}

// sweep removes expired entries. Errors are ignored: a file that cannot be
// removed now will be caught by the next sweep or expire on read.
func (s *StudioStore) sweep() {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "studio-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) > s.ttl {
			_ = os.Remove(filepath.Join(s.basePath, entry.Name()))
		}
	}
}

func fileName(id, ext string) string {
	return "studio-" + id + "." + ext
}
