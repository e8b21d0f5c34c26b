// Package catalog manages the set of collections a process serves. Each
// collection owns an independent indexer.Engine backed by its own index
// file, and the Catalog resolves engines by collection name.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Catalog maps collection names to their engines.
type Catalog struct {
	engines map[string]*indexer.Engine
	names   []string
	mu      sync.RWMutex
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// New creates one engine per configured collection without loading them.
func New(cfg config.IndexConfig, m *metrics.Metrics) *Catalog {
	c := &Catalog{
		engines: make(map[string]*indexer.Engine, len(cfg.Collections)),
		logger:  slog.Default().With("component", "catalog"),
	}
	for _, col := range cfg.Collections {
		c.add(indexer.NewEngine(indexer.EngineConfig{
			Name:        col.Name,
			Path:        col.ResolvedPath(cfg.DataDir),
			LoadTimeout: cfg.LoadTimeout,
			Metrics:     m,
		}))
	}
	if m != nil {
		m.ActiveCollections.Set(float64(len(c.engines)))
	}
	return c
}

// FromEngines builds a catalog around engines that are already loaded.
func FromEngines(engines ...*indexer.Engine) *Catalog {
	c := &Catalog{
		engines: make(map[string]*indexer.Engine, len(engines)),
		logger:  slog.Default().With("component", "catalog"),
	}
	for _, e := range engines {
		c.add(e)
	}
	return c
}

func (c *Catalog) add(e *indexer.Engine) {
	c.engines[e.Name()] = e
	c.names = append(c.names, e.Name())
	sort.Strings(c.names)
}

// LoadAll loads every collection concurrently. Any failure aborts with the
// first error, since a process must not start serving a partial catalog.
func (c *Catalog) LoadAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range c.snapshot() {
		g.Go(func() error {
			return e.Load(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.logger.Info("catalog ready", "collections", len(c.names))
	return nil
}

// Get returns the engine serving the named collection.
func (c *Catalog) Get(name string) (*indexer.Engine, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.engines[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, apperrors.ErrCollectionNotFound)
	}
	return e, nil
}

// Names returns the collection names in ascending order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Engines returns every engine ordered by collection name.
func (c *Catalog) Engines() []*indexer.Engine {
	return c.snapshot()
}

func (c *Catalog) snapshot() []*indexer.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*indexer.Engine, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.engines[name])
	}
	return out
}

// Stats returns per-collection statistics ordered by name.
func (c *Catalog) Stats() []indexer.Stats {
	engines := c.snapshot()
	out := make([]indexer.Stats, 0, len(engines))
	for _, e := range engines {
		out = append(out, e.Stats())
	}
	return out
}

// OnReload registers hook on every engine.
func (c *Catalog) OnReload(hook indexer.ReloadHook) {
	for _, e := range c.snapshot() {
		e.OnReload(hook)
	}
}

// ReloadAll tells every engine to re-read its file. Failures are logged
// and leave that collection on its previous index. It returns the number
// of collections whose content changed.
func (c *Catalog) ReloadAll(ctx context.Context) int {
	changed := 0
	for _, e := range c.snapshot() {
		ok, err := e.Reload(ctx)
		if err != nil {
			c.logger.Error("reload failed", "collection", e.Name(), "error", err)
			continue
		}
		if ok {
			changed++
		}
	}
	return changed
}

// Watch starts a file watcher for every collection. Watchers stop when ctx
// is cancelled or Close is called.
func (c *Catalog) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	for _, e := range c.snapshot() {
		if err := e.Watch(ctx); err != nil {
			cancel()
			return fmt.Errorf("watching collection %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Close stops any running watchers.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}
