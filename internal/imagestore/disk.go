package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

type Disk struct {
	dir string
}

// NewDisk makes sure dir exists.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

func (d *Disk) Save(ctx context.Context, ext, contentType string, r io.Reader) (string, error) {
	name := newName(ext)
	full := filepath.Join(d.dir, name)

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write image file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("close image file: %w", err)
	}

	return publicPath(name), nil
}

func (d *Disk) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	clean, ok := nameFrom(name)
	if !ok || clean != name {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(d.dir, clean))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (d *Disk) Remove(ctx context.Context, p string) error {
	name, ok := nameFrom(p)
	if !ok {
		return ErrNotFound
	}

	err := os.Remove(filepath.Join(d.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
