// Package storage keeps uploaded complaint photos, work-note photos and ID proofs.
package storage

import (
	"context"
	"mime"
	"path/filepath"
	"strings"
)

// File is an upload already read into memory
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileStore persists uploads and returns the URL clients use to fetch them
type FileStore interface {
	Save(ctx context.Context, prefix string, f File) (string, error)
}

// extensionFor picks a file extension from the original name, falling back to the content type
func extensionFor(f File) string {
	if ext := strings.ToLower(filepath.Ext(f.Name)); ext != "" && len(ext) <= 8 {
		return ext
	}
	if exts, err := mime.ExtensionsByType(f.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
