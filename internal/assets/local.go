package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalBackend writes objects under a directory served at baseURL.
type LocalBackend struct {
	dir     string
	baseURL string
}

func NewLocalBackend(dir, baseURL string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &LocalBackend{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *LocalBackend) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	// Keys are flattened: the local tree is a single directory.
	name := path.Base(key)
	out, err := os.Create(filepath.Join(b.dir, name))
	if err != nil {
		return "", fmt.Errorf("could not create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return "", fmt.Errorf("could not save file: %w", err)
	}
	return b.baseURL + "/" + name, nil
}

// Dir is the directory files are written to.
func (b *LocalBackend) Dir() string {
	return b.dir
}
