package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"passdist/internal/store"
)

type entry struct {
	data    []byte
	version string
}

// Blob is an in-process versioned store; used for local runs and tests.
type Blob struct {
	mu      sync.RWMutex
	objects map[string]*entry
	writes  int
}

func New() *Blob {
	return &Blob{objects: make(map[string]*entry)}
}

// Seed loads path from a local file, replacing any current content.
func (b *Blob) Seed(path, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("seed %s: %w", file, err)
	}
	b.Set(path, data)
	return nil
}

// Set stores content unconditionally and returns the new version.
func (b *Blob) Set(path string, content []byte) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := &entry{data: clone(content), version: uuid.NewString()}
	b.objects[path] = e
	return e.version
}

func (b *Blob) Get(ctx context.Context, path string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.objects[path]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return clone(e.data), e.version, nil
}

func (b *Blob) Put(ctx context.Context, path string, content []byte, version, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	current, exists := b.objects[path]
	switch {
	case exists && current.version != version:
		return "", store.ErrVersionConflict
	case !exists && version != "":
		return "", store.ErrNotFound
	}
	e := &entry{data: clone(content), version: uuid.NewString()}
	b.objects[path] = e
	b.writes++
	return e.version, nil
}

// Writes counts successful conditional writes.
func (b *Blob) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}

func clone(data []byte) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
