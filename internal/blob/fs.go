package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var _ Store = (*FSStore)(nil)

// FSStore implements Store on the local filesystem. The bucket is a
// directory; objects are files inside it. Suitable for single-server
// deployments and tests; a cloud-backed Store can replace it without
// touching callers.
type FSStore struct {
	root    string
	baseURL string
}

// NewFSStore creates the bucket directory if needed. baseURL is the
// public prefix served for the bucket, e.g. "/uploads".
func NewFSStore(root, baseURL string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob: creating bucket directory %s: %w", root, err)
	}
	return &FSStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put writes the object and returns its public URL. Keys are generated
// by ObjectKey and never contain path separators; anything else is
// rejected before touching the filesystem.
func (s *FSStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("blob: invalid object key %q", key)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, key)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("blob: creating object %s: %w", key, err)
	}

	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("blob: writing object %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("blob: closing object %s: %w", key, err)
	}

	return s.baseURL + "/" + key, nil
}
