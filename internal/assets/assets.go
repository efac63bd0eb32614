// Package assets stores message images outside the conversation store and
// hands back the URL the message record keeps.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// MaxImageBytes is the largest image accepted, decoded.
const MaxImageBytes = 5 << 20

var (
	ErrInvalidDataURL = errors.New("invalid image data URL")
	ErrNotAnImage     = errors.New("only image uploads are allowed")
	ErrTooLarge       = errors.New("image exceeds 5MB")
)

var extensions = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/avif":    ".avif",
	"image/svg+xml": ".svg",
}

// Backend writes one object and returns its public URL.
type Backend interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// Store validates images and names them before handing them to a Backend.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// PutDataURL uploads a base64 data URL such as those produced by a browser
// FileReader.
func (s *Store) PutDataURL(ctx context.Context, dataURL string) (string, error) {
	data, contentType, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	return s.PutImage(ctx, contentType, data)
}

// PutImage uploads raw image bytes of the given content type.
func (s *Store) PutImage(ctx context.Context, contentType string, data []byte) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", ErrNotAnImage
	}
	if len(data) > MaxImageBytes {
		return "", ErrTooLarge
	}
	key := "messages/" + uuid.NewString() + ext
	url, err := s.backend.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return url, nil
}

// DecodeDataURL parses "data:<type>;base64,<payload>".
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return nil, "", ErrInvalidDataURL
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", ErrNotAnImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, "", ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return data, contentType, nil
}
