// Package imagestore persists uploaded images and serves them back by name.
package imagestore

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Prefix is the public path every stored image lives under.
const Prefix = "uploads/images"

var ErrNotFound = errors.New("image not found")

type Store interface {
	// Save stores r under a fresh name with extension ext and returns the public path.
	Save(ctx context.Context, ext, contentType string, r io.Reader) (string, error)
	// Open returns the image stored under name (the last path element).
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Remove deletes the image a previous Save returned.
	Remove(ctx context.Context, path string) error
}

func newName(ext string) string {
	return uuid.NewString() + "." + strings.TrimPrefix(ext, ".")
}

// nameFrom extracts the stored file name from a public path and rejects anything
// that could escape the image directory.
func nameFrom(p string) (string, bool) {
	name := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "", false
	}
	return name, true
}

func publicPath(name string) string {
	return Prefix + "/" + name
}
