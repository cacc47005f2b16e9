package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vaultd/internal/models"
)

// Local stores objects as files under a sandboxed root directory.
type Local struct {
	root string
}

// NewLocal creates a local driver rooted at root.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, ".tmp"), 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

func (d *Local) Kind() string {
	return string(models.StorageKindLocal)
}

// Put writes the object through a temp file and renames it into place so
// readers never observe partial content.
func (d *Local) Put(ctx context.Context, objectKey string, body io.Reader, contentType string) error {
	if d == nil {
		return fmt.Errorf("local driver is not configured")
	}
	if body == nil {
		return fmt.Errorf("body is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := d.pathFromKey(objectKey)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Join(d.root, ".tmp"), "put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Get returns a reader for the object content.
func (d *Local) Get(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	if d == nil {
		return nil, fmt.Errorf("local driver is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.pathFromKey(objectKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, objectKey)
		}
		return nil, err
	}
	return f, nil
}

// Delete removes an object. Missing files are ignored.
func (d *Local) Delete(ctx context.Context, objectKey string) error {
	if d == nil {
		return fmt.Errorf("local driver is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := d.pathFromKey(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// pathFromKey canonicalizes an object key and rejects anything that would
// resolve outside the root. This is the traversal guard for malformed or
// hostile keys; it must fail hard, never truncate.
func (d *Local) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("object key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("object key escapes storage root")
	}
	path := filepath.Join(d.root, clean)
	if path != d.root && !strings.HasPrefix(path, d.root+string(filepath.Separator)) {
		return "", fmt.Errorf("object key escapes storage root")
	}
	return path, nil
}
