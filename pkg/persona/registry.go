package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Registry holds the personas loaded from a directory and keeps them
// current as files change on disk. Reloads are visible to sessions
// started after the change; a running session keeps the persona it
// resolved at start.
type Registry struct {
	dir      string
	mu       sync.RWMutex
	personas map[string]*Persona
	watcher  *fsnotify.Watcher
	done     chan struct{}
	logger   *zap.Logger
}

// NewRegistry loads every *.toml persona under dir. Files that fail to
// parse are logged and skipped so one bad persona doesn't take down the
// rest.
func NewRegistry(dir string, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		dir:      dir,
		personas: make(map[string]*Persona),
		done:     make(chan struct{}),
		logger:   logger,
	}

	if err := r.loadAll(); err != nil {
		return nil, err
	}

	return r, nil
}

// Get returns the persona for agentID, or an error if none is loaded.
func (r *Registry) Get(agentID string) (*Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.personas[agentID]
	if !ok {
		return nil, fmt.Errorf("no persona loaded for agent %q", agentID)
	}
	return p, nil
}

// List returns the agent IDs of all loaded personas.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.personas))
	for id := range r.personas {
		ids = append(ids, id)
	}
	return ids
}

// Watch starts watching the personas directory and reloads on change.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching personas dir: %w", err)
	}

	r.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".toml") {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}

				r.logger.Info("personas changed, reloading",
					zap.String("file", filepath.Base(event.Name)),
					zap.String("op", event.Op.String()),
				)
				if err := r.loadAll(); err != nil {
					r.logger.Error("persona reload failed", zap.Error(err))
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Error("persona watcher error", zap.Error(err))

			case <-r.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the watcher.
func (r *Registry) Close() error {
	close(r.done)
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// loadAll rebuilds the registry from the directory contents.
func (r *Registry) loadAll() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading personas dir: %w", err)
	}

	loaded := make(map[string]*Persona)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		p, err := Load(path)
		if err != nil {
			r.logger.Warn("skipping invalid persona",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}

		if _, dup := loaded[p.AgentID]; dup {
			r.logger.Warn("duplicate persona agent_id, keeping first",
				zap.String("agent_id", p.AgentID),
				zap.String("file", entry.Name()),
			)
			continue
		}

		loaded[p.AgentID] = p
	}

	r.mu.Lock()
	r.personas = loaded
	r.mu.Unlock()

	r.logger.Debug("personas loaded", zap.Int("count", len(loaded)))
	return nil
}
