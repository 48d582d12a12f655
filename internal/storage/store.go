package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"path"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// FloorplanDir is the sub-directory holding floorplan images
const FloorplanDir = "floorplans"

// ErrNotFound is returned by Delete when the asset is already gone
var ErrNotFound = errors.New("asset not found")

// AssetStore persists binary assets under stable keys
type AssetStore interface {
	// Put stores r under key, replacing any existing bytes, and returns the public URL
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes key; ErrNotFound if it does not exist
	Delete(ctx context.Context, key string) error
	// Exists reports whether key is stored
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns the public URL of key
	URL(key string) string
}

// Opener is implemented by stores that can stream an asset back
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// RemoveQuietly deletes key and only logs failures. A missing asset is a warning.
func RemoveQuietly(ctx context.Context, store AssetStore, key string) {
	if key == "" {
		return
	}
	err := store.Delete(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		log.Printf("⚠️ Asset not found while deleting: %s", key)
	default:
		log.Printf("⚠️ Failed to delete asset %s: %v", key, err)
	}
}

var extPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// FloorplanKey derives the storage key of a floorplan image from its id.
// Only the extension of the uploaded file name is kept, and only when it is
// alphanumeric.
func FloorplanKey(floorplanID, filename string) string {
	ext := "jpg"
	if i := strings.LastIndex(filename, "."); i >= 0 {
		if e := strings.ToLower(filename[i+1:]); extPattern.MatchString(e) {
			ext = e
		}
	}
	return path.Join(FloorplanDir, fmt.Sprintf("%s.%s", floorplanID, ext))
}

// ContentTypeFor guesses a MIME type from the key extension
func ContentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".svg":
		return "image/svg+xml"
	}
	return "application/octet-stream"
}

// ImageSize decodes only the image header and returns its dimensions
func ImageSize(r io.Reader) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
