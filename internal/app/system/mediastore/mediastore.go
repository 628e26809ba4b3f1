// Package mediastore saves uploaded images and videos and returns the URL
// clients use to fetch them. Two backends exist: a local directory served by
// the app itself, and an S3 bucket.
package mediastore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/domain/models"
)

// Size limits per media kind.
const (
	MaxImageBytes = 10 << 20
	MaxVideoBytes = 100 << 20
)

// accepted maps an allowed Content-Type to its media kind and file extension.
var accepted = map[string]struct {
	kind string
	ext  string
}{
	"image/jpeg": {models.MediaImage, ".jpg"},
	"image/png":  {models.MediaImage, ".png"},
	"image/gif":  {models.MediaImage, ".gif"},
	"image/webp": {models.MediaImage, ".webp"},
	"video/mp4":  {models.MediaVideo, ".mp4"},
	"video/webm": {models.MediaVideo, ".webm"},
}

// PutOptions carries object metadata.
type PutOptions struct {
	ContentType string
}

// Store is a media backend.
type Store interface {
	// Put writes r under key.
	Put(ctx context.Context, key string, r io.Reader, opts *PutOptions) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL of key.
	URL(key string) string
}

// Classify returns the media kind for contentType and checks size against
// the kind's limit.
func Classify(contentType string, size int64) (kind, ext string, err error) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	a, ok := accepted[ct]
	if !ok {
		return "", "", apperr.ErrUnsupportedMedia
	}
	limit := int64(MaxImageBytes)
	if a.kind == models.MediaVideo {
		limit = MaxVideoBytes
	}
	if size > limit {
		return "", "", apperr.ErrMediaTooLarge.WithMessage(
			fmt.Sprintf("File is too large; the limit for %ss is %d MiB.", a.kind, limit>>20))
	}
	return a.kind, a.ext, nil
}

// LimitFor returns the size limit that applies to contentType, or the image
// limit when the type is unknown.
func LimitFor(contentType string) int64 {
	if a, ok := accepted[strings.ToLower(contentType)]; ok && a.kind == models.MediaVideo {
		return MaxVideoBytes
	}
	return MaxImageBytes
}

// Upload is the result of Save.
type Upload struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Key  string `json:"-"`
	Size int64  `json:"size"`
}

// Save validates and stores one file.
// Keys are laid out as <kind>s/YYYY/MM/<uuid><ext>.
func Save(ctx context.Context, store Store, r io.Reader, contentType string, size int64) (Upload, error) {
	kind, ext, err := Classify(contentType, size)
	if err != nil {
		return Upload{}, err
	}
	now := time.Now().UTC()
	key := path.Join(
		fmt.Sprintf("%ss", kind),
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		uuid.New().String()+ext,
	)
	if err := store.Put(ctx, key, r, &PutOptions{ContentType: contentType}); err != nil {
		return Upload{}, fmt.Errorf("store media: %w", err)
	}
	return Upload{Type: kind, URL: store.URL(key), Key: key, Size: size}, nil
}
