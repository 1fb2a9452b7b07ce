package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore stores images on the local filesystem, served from a static
// file route. It is the development fallback when no bucket is configured.
type DiskStore struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewDiskStore creates a disk image store rooted at dir; stored files are
// addressed as baseURL/<name>.
func NewDiskStore(dir, baseURL string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create dir: %w", err)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

// Put implements Store.
func (s *DiskStore) Put(ctx context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	if err := checkType(contentType); err != nil {
		return "", err
	}
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	name := objectName(filename)
	dst := filepath.Join(s.dir, name)

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("upload: create file: %w", err)
	}
	defer f.Close()

	var src io.Reader = r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("upload: write file: %w", err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		os.Remove(dst)
		return "", ErrTooLarge
	}

	return s.baseURL + "/" + name, nil
}
