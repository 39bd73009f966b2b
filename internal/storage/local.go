package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalFileProvider resolves ids directly as filesystem paths under
// BaseDir. It exists for local development and tests, mirroring the
// original service's LocalFileProvider: "ensure the file exists and
// yield the path", no temp-file cleanup needed.
type LocalFileProvider struct {
	BaseDir string
}

// NewLocalFileProvider roots all ids under baseDir, creating it if
// necessary.
func NewLocalFileProvider(baseDir string) (*LocalFileProvider, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base dir: %w", err)
	}
	return &LocalFileProvider{BaseDir: baseDir}, nil
}

func (p *LocalFileProvider) GetFile(ctx context.Context, id string) (string, func(), error) {
	path := filepath.Join(p.BaseDir, id)
	if _, err := os.Stat(path); err != nil {
		return "", nil, fmt.Errorf("local file not found: %s", id)
	}
	return path, func() {}, nil
}

func (p *LocalFileProvider) StoreImage(ctx context.Context, sourcePath, destID string) error {
	return p.store(sourcePath, filepath.Join("images", destID))
}

func (p *LocalFileProvider) StoreProductFile(ctx context.Context, sourcePath, destID string) error {
	return p.store(sourcePath, filepath.Join("products", destID))
}

func (p *LocalFileProvider) store(sourcePath, rel string) error {
	destPath := filepath.Join(p.BaseDir, rel)
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("write dest file: %w", err)
	}
	return nil
}
