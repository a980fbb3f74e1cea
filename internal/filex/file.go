// Package filex provides small filesystem helpers shared by the upload
// receiver and the local storage sink.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxFileNameLen caps stored file names so they fit common filesystem limits.
const maxFileNameLen = 255

// EnsureDir makes sure the directory exists and returns its absolute path.
// Relative paths are resolved against the working directory.
func EnsureDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SanitizeFileName makes a client-supplied file name safe to store on disk:
// every character outside [A-Za-z0-9._-] is replaced with '_', leading dots
// are stripped, and the result is truncated to 255 characters. An empty
// result collapses to "file".
func SanitizeFileName(name string) string {
	// Drop any path components the client may have smuggled in.
	name = filepath.Base(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	s := strings.TrimLeft(b.String(), ".")
	if len(s) > maxFileNameLen {
		s = s[:maxFileNameLen]
	}
	if s == "" {
		return "file"
	}
	return s
}
