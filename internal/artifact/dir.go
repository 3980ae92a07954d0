package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fpang/storyfairy/internal/story"
)

// DirStore writes each container to a subdirectory of a local root. It
// backs the CLI's generate and serve commands.
type DirStore struct {
	root string
}

// NewDirStore creates a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

func (s *DirStore) path(container, key string) (string, error) {
	c, err := story.ParseContainer(container)
	if err != nil {
		return "", err
	}
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("%w: invalid key %q", story.ErrValidation, key)
	}
	return filepath.Join(s.root, string(c), key), nil
}

func (s *DirStore) Put(_ context.Context, data []byte, _ string, container, key string) (string, error) {
	p, err := s.path(container, key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create container dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func (s *DirStore) Get(_ context.Context, container, key string) (*Object, error) {
	p, err := s.path(container, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	ct := mime.TypeByExtension(filepath.Ext(p))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return &Object{Data: data, ContentType: ct}, nil
}
