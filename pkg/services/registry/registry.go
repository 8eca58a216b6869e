// Package registry tracks the model bundles available to the service. A
// bundle directory is scanned once at startup; artifacts are re-read per
// request through the content-hash cache, so a replaced file takes effect
// without a restart once the cache entry expires.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mixtools/mixatlas/pkg/mmm"
	"github.com/mixtools/mixatlas/pkg/models/domain"
	"github.com/mixtools/mixatlas/pkg/store/bundle"
	"github.com/mixtools/mixatlas/pkg/store/bundlecache"
	"github.com/rs/zerolog"
)

var ErrModelNotFound = errors.New("model not found")

// Explorer exposes the registered bundles to handlers and the CLI.
type Explorer interface {
	ListModels(ctx context.Context) ([]domain.ModelSummary, error)
	GetBundle(ctx context.Context, name string) (*mmm.Bundle, error)
}

// FileExplorer serves bundles from a directory of JSON artifacts.
type FileExplorer struct {
	dir   string
	cache *bundlecache.Cache // optional

	mu    sync.RWMutex
	paths map[string]string // model name -> artifact path
}

func NewFileExplorer(dir string, cache *bundlecache.Cache) *FileExplorer {
	return &FileExplorer{dir: dir, cache: cache, paths: make(map[string]string)}
}

// Init scans the bundle directory and validates every artifact. Broken
// artifacts fail startup: a model that cannot be loaded must not appear to
// exist and then fail on first allocation.
func (e *FileExplorer) Init(ctx context.Context) error {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return fmt.Errorf("reading bundle directory %q: %w", e.dir, err)
	}

	logger := zerolog.Ctx(ctx)
	paths := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(e.dir, entry.Name())
		b, _, err := bundle.LoadFile(path)
		if err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
		if existing, ok := paths[b.Name]; ok {
			return fmt.Errorf("duplicate bundle name %q in %q and %q", b.Name, existing, path)
		}
		paths[b.Name] = path
		logger.Info().Str("model", b.Name).Str("path", path).Msg("registered model bundle")
	}

	e.mu.Lock()
	e.paths = paths
	e.mu.Unlock()
	return nil
}

func (e *FileExplorer) ListModels(ctx context.Context) ([]domain.ModelSummary, error) {
	e.mu.RLock()
	names := make([]string, 0, len(e.paths))
	for name := range e.paths {
		names = append(names, name)
	}
	e.mu.RUnlock()
	sort.Strings(names)

	summaries := make([]domain.ModelSummary, 0, len(names))
	for _, name := range names {
		b, err := e.GetBundle(ctx, name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, b.Summary())
	}
	return summaries, nil
}

// GetBundle loads a bundle by name. The artifact bytes are hashed; when the
// cache holds a payload for that hash the cached copy is parsed, which
// skips nothing locally but keeps one canonical payload per hash across
// replicas sharing the cache.
func (e *FileExplorer) GetBundle(ctx context.Context, name string) (*mmm.Bundle, error) {
	e.mu.RLock()
	path, ok := e.paths[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle artifact %q: %w", path, err)
	}
	hash := bundle.ContentHash(data)

	cached := false
	if e.cache != nil {
		if payload, hit := e.cache.Get(ctx, hash); hit {
			data = payload
			cached = true
		}
	}
	b, err := bundle.Parse(data)
	if err != nil {
		return nil, err
	}
	if e.cache != nil && !cached {
		e.cache.Set(ctx, hash, data)
	}
	return b, nil
}
