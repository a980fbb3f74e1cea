package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/uploadvault/internal/filex"
)

// LocalProvider stores objects under a directory on the local filesystem.
// It serves development setups and proxy-mode deployments without an
// object store.
type LocalProvider struct {
	root string
}

// NewLocalProvider ensures the root directory exists and returns a provider
// writing beneath it. Relative roots resolve against the working directory.
func NewLocalProvider(root string) (*LocalProvider, error) {
	dir, err := filex.EnsureDir(root)
	if err != nil {
		return nil, fmt.Errorf("error creating upload directory: %w", err)
	}
	return &LocalProvider{root: dir}, nil
}

// Put writes the payload to root/key, creating intermediate directories as
// needed. Keys are slash-separated; path traversal segments are rejected.
func (p *LocalProvider) Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (Resource, error) {
	if err := validateKey(key); err != nil {
		return Resource{}, err
	}

	path := filepath.Join(p.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Resource{}, fmt.Errorf("error creating directory for %s: %w", key, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return Resource{}, fmt.Errorf("error creating %s: %w", key, err)
	}
	defer f.Close()

	n, err := io.Copy(f, body)
	if err != nil {
		os.Remove(path)
		return Resource{}, fmt.Errorf("error writing %s: %w", key, err)
	}

	return Resource{
		PublicID:     key,
		SecureURL:    "file://" + path,
		ResourceKind: KindForKey(key),
		Bytes:        n,
	}, nil
}

// List walks the root directory and returns objects under the prefix.
func (p *LocalProvider) List(ctx context.Context, prefix string) ([]Resource, error) {
	var resources []Resource

	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		resources = append(resources, Resource{
			PublicID:     key,
			SecureURL:    "file://" + path,
			ResourceKind: KindForKey(key),
			Bytes:        info.Size(),
			CreatedAt:    info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error listing uploads: %w", err)
	}

	return resources, nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty object key")
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid object key: %s", key)
		}
	}
	return nil
}
