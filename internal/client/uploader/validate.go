package uploader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MaxFileSize is the per-file upload ceiling (10 MiB).
const MaxFileSize = 10 << 20

// File describes one candidate file selected by the user. ContentType is the
// declared media type; when empty it is derived from the file extension.
type File struct {
	Path string
	Name string
	Size int64

	ContentType string
}

// contentTypeByExt maps accepted extensions to their declared media type.
var contentTypeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".json": "application/json",
	".csv":  "text/csv",
}

// allowedTypes is the fixed media-type allow-list.
var allowedTypes = map[string]struct{}{
	"image/jpeg":       {},
	"image/png":        {},
	"application/json": {},
	"text/csv":         {},
}

// ContentTypeFor derives the declared media type from a file name, falling
// back to application/octet-stream for unknown extensions.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypeByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ResourceKindFor classifies a file for the storage provider: images upload
// through the image pipeline, everything else as raw data.
func ResourceKindFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return "image"
	default:
		return "raw"
	}
}

// Validate runs the synchronous pre-upload checks: declared media type must
// be on the allow-list and the size must not exceed MaxFileSize. It returns
// nil when the file is acceptable and a user-facing error otherwise.
func Validate(f File) error {
	ct := f.ContentType
	if ct == "" {
		ct = ContentTypeFor(f.Name)
	}

	if _, ok := allowedTypes[ct]; !ok {
		return errors.New("File type not supported. Please upload JPG, PNG, JSON, or CSV files.")
	}

	if f.Size > MaxFileSize {
		return fmt.Errorf("File size exceeds 10MB limit. Your file is %.2fMB", float64(f.Size)/1024/1024)
	}

	return nil
}
