package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"toolbox/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Cache keeps a parsed package list in memory for long-lived sessions and
// drops it whenever packages.json changes on disk.
type Cache struct {
	mgr *Manager

	mu  sync.RWMutex
	idx *Index

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewCache creates a cache over mgr.
func NewCache(mgr *Manager) *Cache {
	return &Cache{mgr: mgr}
}

// Get returns the cached package list, loading (and downloading) it first
// when nothing is cached.
func (c *Cache) Get(ctx context.Context) (*Index, error) {
	c.mu.RLock()
	idx := c.idx
	c.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}

	idx, err := c.mgr.EnsureLoad(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.idx = idx
	c.mu.Unlock()
	return idx, nil
}

// Invalidate drops the cached list.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.idx = nil
	c.mu.Unlock()
}

// Cached reports whether a list is currently held.
func (c *Cache) Cached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx != nil
}

// Start watches the directory holding packages.json. The directory is
// watched rather than the file because downloads replace the file by rename.
// Non-blocking.
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	dir := filepath.Dir(c.mgr.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		c.mu.Unlock()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		c.mu.Unlock()
		return err
	}
	c.watcher = watcher
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.running = true
	c.mu.Unlock()

	go c.run(ctx)
	logging.IndexDebug("Watching %s for changes", c.mgr.Path())
	return nil
}

// Stop ends watching and waits for the watcher goroutine to exit.
func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	close(c.stopCh)
	<-c.doneCh
	if err := c.watcher.Close(); err != nil {
		logging.IndexWarn("error closing index watcher: %v", err)
	}
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.doneCh)

	target := filepath.Clean(c.mgr.Path())
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				logging.IndexDebug("Package list changed (%s), dropping cache", ev.Op)
				c.Invalidate()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logging.IndexWarn("index watcher error: %v", err)
		}
	}
}
