package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FakeProvider is an in-memory/tempdir FileProvider: GetFile serves files
// that were pre-registered with Put, and StoreImage/StoreProductFile just
// record the destination id and copy bytes into a scratch directory so
// tests can assert on what would have been uploaded.
type FakeProvider struct {
	mu       sync.Mutex
	dir      string
	sources  map[string]string // id -> local path
	Images   map[string]string // destID -> local path of what was stored
	Products map[string]string // destID -> local path of what was stored

	// StoreErr, when non-nil, is returned by every StoreImage/StoreProductFile
	// call instead of actually storing — lets tests simulate an upload
	// failure (transient storage fault) without a real S3 dependency.
	StoreErr error
}

// NewFakeProvider creates a provider backed by a scratch directory (a
// t.TempDir() in tests).
func NewFakeProvider(scratchDir string) *FakeProvider {
	return &FakeProvider{
		dir:      scratchDir,
		sources:  make(map[string]string),
		Images:   make(map[string]string),
		Products: make(map[string]string),
	}
}

// Put registers id as resolving to localPath, as if it had already been
// uploaded to the incoming bucket.
func (p *FakeProvider) Put(id, localPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[id] = localPath
}

func (p *FakeProvider) GetFile(ctx context.Context, id string) (string, func(), error) {
	p.mu.Lock()
	path, ok := p.sources[id]
	p.mu.Unlock()
	if !ok {
		return "", func() {}, fmt.Errorf("fake provider: no file registered for id %q", id)
	}
	return path, func() {}, nil
}

func (p *FakeProvider) StoreImage(ctx context.Context, sourcePath, destID string) error {
	return p.store(sourcePath, destID, p.Images)
}

func (p *FakeProvider) StoreProductFile(ctx context.Context, sourcePath, destID string) error {
	return p.store(sourcePath, destID, p.Products)
}

func (p *FakeProvider) store(sourcePath, destID string, into map[string]string) error {
	if p.StoreErr != nil {
		return p.StoreErr
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("fake provider: read %s: %w", sourcePath, err)
	}
	dest := filepath.Join(p.dir, filepath.Base(destID))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("fake provider: write %s: %w", dest, err)
	}
	p.mu.Lock()
	into[destID] = dest
	p.mu.Unlock()
	return nil
}
