// Package storage abstracts the object store behind the upload portal.
// Two implementations exist: an S3-compatible backend used in deployments
// and a local directory sink for development and proxy-mode tests.
package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Resource describes a stored object as exposed to API clients.
type Resource struct {
	PublicID     string
	SecureURL    string
	ResourceKind string
	Bytes        int64
	CreatedAt    time.Time
}

// Provider stores and lists uploaded objects.
//
// Put persists the payload under the given key and returns the resulting
// resource descriptor. List returns resources whose keys start with prefix.
type Provider interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader, size int64) (Resource, error)
	List(ctx context.Context, prefix string) ([]Resource, error)
}

// KindForKey derives the resource kind from the object key extension.
// Image formats map to "image", everything else is "raw".
func KindForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".jpg", ".jpeg", ".png":
		return "image"
	default:
		return "raw"
	}
}
