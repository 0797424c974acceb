// Package registry holds the authoritative mapping of repository name to its
// configuration, persisted as a flat JSON file.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Config is one managed repository.
type Config struct {
	// Path is the absolute filesystem root to index.
	Path string `json:"path"`

	// Language selects the chunking grammar and file-extension filter.
	Language string `json:"language"`
}

// Registry is the process-wide map of repository name to configuration.
// A configuration exists iff a matching vector collection exists; the
// indexing orchestrator is the only writer allowed to break that invariant
// transiently.
type Registry struct {
	mu     sync.Mutex
	repos  map[string]Config
	path   string
	logger *zap.Logger
}

// New creates a registry persisting to the given file path. An empty path
// disables persistence.
func New(path string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		repos:  make(map[string]Config),
		path:   path,
		logger: logger,
	}
}

// Load hydrates the registry from its persistence file. A missing file is
// not an error; the registry starts empty.
func (r *Registry) Load() error {
	if r.path == "" {
		return nil
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading registry file: %w", err)
	}

	repos := make(map[string]Config)
	if err := json.Unmarshal(raw, &repos); err != nil {
		return fmt.Errorf("parsing registry file %s: %w", r.path, err)
	}

	r.mu.Lock()
	r.repos = repos
	r.mu.Unlock()
	return nil
}

// Register inserts a repository if the name is free. The check and insert
// are atomic, so two concurrent adds for the same name cannot both succeed.
func (r *Registry) Register(name string, cfg Config) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.repos[name]; exists {
		return false
	}
	r.repos[name] = cfg
	return true
}

// Deregister removes a repository and returns its configuration.
func (r *Registry) Deregister(name string) (Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.repos[name]
	if ok {
		delete(r.repos, name)
	}
	return cfg, ok
}

// Get returns the configuration for a repository name.
func (r *Registry) Get(name string) (Config, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.repos[name]
	return cfg, ok
}

// List returns all registered repository names, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.repos))
	for name := range r.repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the registry to its persistence file via a temp-file rename.
// Callers log a Save failure and keep the in-memory state; durable and
// in-memory views can diverge until the next successful Save.
func (r *Registry) Save() error {
	if r.path == "" {
		return nil
	}

	r.mu.Lock()
	raw, err := json.MarshalIndent(r.repos, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating registry dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing registry file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing registry file: %w", err)
	}
	return nil
}

// SaveOrLog saves the registry and logs on failure instead of returning the
// error. In-memory state is never rolled back on a persistence failure.
func (r *Registry) SaveOrLog() {
	if err := r.Save(); err != nil {
		r.logger.Error("persisting registry failed; in-memory state kept", zap.Error(err))
	}
}
