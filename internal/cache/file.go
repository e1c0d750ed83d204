package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File keeps the slot in a single file. Writes go to a temporary file in
// the same directory and are renamed into place, so readers never observe
// a partial value.
type File struct {
	Path string
}

func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("cache: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	return &File{Path: path}, nil
}

func (f *File) Get(context.Context) ([]byte, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", f.Path, err)
	}
	return b, nil
}

func (f *File) Set(_ context.Context, value []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("cache: rename: %w", err)
	}
	return nil
}

func (f *File) Delete(context.Context) error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cache: remove %s: %w", f.Path, err)
	}
	return nil
}
