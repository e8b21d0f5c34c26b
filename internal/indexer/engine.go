// Package indexer owns the loaded search indexes. An Engine serves one
// index file and swaps in a fresh immutable store on reload; queries that
// already hold the previous store finish against it undisturbed.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

const watchDebounce = 250 * time.Millisecond

// EngineConfig describes one collection.
type EngineConfig struct {
	Name        string
	Path        string
	LoadTimeout time.Duration
	Metrics     *metrics.Metrics
}

// ReloadHook is called after a new store has been installed.
type ReloadHook func(collection string, previous, current *index.Store)

// Stats summarises the currently loaded store.
type Stats struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Documents int       `json:"documents"`
	Terms     int       `json:"terms"`
	Checksum  string    `json:"checksum"`
	LoadedAt  time.Time `json:"loaded_at"`
}

type Engine struct {
	cfg      EngineConfig
	current  atomic.Pointer[index.Store]
	loadedAt atomic.Int64
	reloadMu sync.Mutex
	hooksMu  sync.RWMutex
	hooks    []ReloadHook
	logger   *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		cfg:    cfg,
		logger: slog.Default().With("component", "indexer", "collection", cfg.Name),
	}
}

// NewStaticEngine wraps an already built store. It cannot be reloaded
// from disk.
func NewStaticEngine(name string, store *index.Store) *Engine {
	e := NewEngine(EngineConfig{Name: name})
	e.current.Store(store)
	e.loadedAt.Store(time.Now().UnixNano())
	return e
}

func (e *Engine) Name() string { return e.cfg.Name }

func (e *Engine) Path() string { return e.cfg.Path }

// OnReload registers a hook run after every successful store swap.
func (e *Engine) OnReload(hook ReloadHook) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, hook)
}

// Store returns the current store, or ErrIndexUnavailable before the
// first successful load.
func (e *Engine) Store() (*index.Store, error) {
	s := e.current.Load()
	if s == nil {
		return nil, fmt.Errorf("collection %s: %w", e.cfg.Name, apperrors.ErrIndexUnavailable)
	}
	return s, nil
}

// Load reads the index file and installs it. It is used for the initial
// load, where a failure must abort startup.
func (e *Engine) Load(ctx context.Context) error {
	_, err := e.Reload(ctx)
	return err
}

// Reload re-reads the index file. When the checksum is unchanged the
// current store is kept and changed is false. On error the previous store
// stays in place.
func (e *Engine) Reload(ctx context.Context) (changed bool, err error) {
	if e.cfg.Path == "" {
		return false, fmt.Errorf("collection %s has no index file: %w", e.cfg.Name, apperrors.ErrInvalidInput)
	}
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	start := time.Now()
	next, err := resilience.Within(ctx, e.cfg.LoadTimeout, "load "+e.cfg.Name, func(context.Context) (*index.Store, error) {
		return segment.Load(e.cfg.Path)
	})
	if err != nil {
		e.cfg.Metrics.RecordLoad(e.cfg.Name, "error", 0, 0)
		if prev := e.current.Load(); prev != nil {
			e.logger.Error("reload failed, keeping previous index",
				"path", e.cfg.Path,
				"checksum", prev.Checksum(),
				"error", err,
			)
		}
		return false, fmt.Errorf("loading collection %s: %w", e.cfg.Name, err)
	}

	prev := e.current.Load()
	if prev != nil && prev.Checksum() == next.Checksum() {
		e.cfg.Metrics.RecordLoad(e.cfg.Name, "unchanged", 0, 0)
		e.logger.Debug("index unchanged", "checksum", next.Checksum())
		return false, nil
	}
	e.current.Store(next)
	e.loadedAt.Store(time.Now().UnixNano())
	e.cfg.Metrics.RecordLoad(e.cfg.Name, "ok", next.NumDocs(), next.NumTerms())
	e.logger.Info("index loaded",
		"path", e.cfg.Path,
		"documents", next.NumDocs(),
		"terms", next.NumTerms(),
		"checksum", next.Checksum(),
		"duration", time.Since(start),
	)

	e.hooksMu.RLock()
	hooks := make([]ReloadHook, len(e.hooks))
	copy(hooks, e.hooks)
	e.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(e.cfg.Name, prev, next)
	}
	return true, nil
}

// Stats describes the current store. It reports zero counts before the
// first load.
func (e *Engine) Stats() Stats {
	st := Stats{Name: e.cfg.Name, Path: e.cfg.Path}
	if s := e.current.Load(); s != nil {
		st.Documents = s.NumDocs()
		st.Terms = s.NumTerms()
		st.Checksum = s.Checksum()
		st.LoadedAt = time.Unix(0, e.loadedAt.Load()).UTC()
	}
	return st
}

// Watch reloads the index whenever its file is written, created or
// renamed into place, until ctx is cancelled. The parent directory is
// watched so atomic replacements are seen. Bursts of events are collapsed.
func (e *Engine) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	dir := filepath.Dir(e.cfg.Path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	e.logger.Info("watching index file", "path", e.cfg.Path)

	go func() {
		defer watcher.Close()
		target := filepath.Clean(e.cfg.Path)
		var (
			timer   *time.Timer
			timerCh <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !relevant(ev.Op) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				timerCh = timer.C
			case <-timerCh:
				timerCh = nil
				if _, err := e.Reload(ctx); err != nil {
					e.logger.Warn("watch-triggered reload failed", "error", err)
				}
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				e.logger.Warn("watcher error", "error", werr)
			}
		}
	}()
	return nil
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}
