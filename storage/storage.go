// Package storage saves uploaded menu images and returns their public URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrNotImage = errors.New("file is not a supported image")
	ErrTooLarge = errors.New("file is too large")
)

var allowedImages = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

type ImageStore interface {
	Save(ctx context.Context, data []byte, contentType, ext string) (string, error)
}

// Image is an uploaded file whose content has been sniffed.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ReadImage reads an upload, rejecting anything over maxBytes or not an image
// by content. The client supplied filename and type are ignored.
func ReadImage(fh *multipart.FileHeader, maxBytes int64) (*Image, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := maxBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return SniffImage(data)
}

func SniffImage(data []byte) (*Image, error) {
	mt := mimetype.Detect(data)
	for _, allowed := range allowedImages {
		if mt.Is(allowed) {
			return &Image{Data: data, ContentType: mt.String(), Extension: mt.Extension()}, nil
		}
	}
	return nil, ErrNotImage
}

func objectName(ext string) string {
	return uuid.NewString() + ext
}

// LocalStore writes images under Dir and serves them from URLPrefix.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir, urlPrefix string) *LocalStore {
	return &LocalStore{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalStore) Save(_ context.Context, data []byte, _ string, ext string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := objectName(ext)
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path.Join(s.URLPrefix, name), nil
}
