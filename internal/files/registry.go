package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Registry is the single source of truth for the directory under which
// per-client files live. The value is process-wide and mutable at
// runtime; reads are concurrent, writes are exclusive, and readers
// never observe a partially-updated value.
type Registry struct {
	mu     sync.RWMutex
	root   string
	logger *slog.Logger
}

// NewRegistry initializes the registry with defaultPath, creating the
// directory if it is absent. A creation failure is logged but the
// value is still recorded; later file operations will surface the
// problem per call.
func NewRegistry(defaultPath string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(defaultPath, 0o755); err != nil {
		logger.Error("failed to create default root directory", "path", defaultPath, "error", err)
	}
	return &Registry{root: defaultPath, logger: logger}
}

// Get returns the current root path. The second return value is false
// when no root has ever been set.
func (r *Registry) Get() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root, r.root != ""
}

// Set validates that candidate exists and is a directory, then
// replaces the current root with its canonical absolute form. On
// validation failure the previous value is retained and ErrInvalidPath
// is returned. The canonical path actually stored is returned.
func (r *Registry) Set(candidate string) (string, error) {
	info, err := os.Stat(candidate)
	if err != nil || !info.IsDir() {
		return "", ErrInvalidPath
	}

	canonical, err := canonicalize(candidate)
	if err != nil {
		return "", fmt.Errorf("canonicalize %q: %w", candidate, err)
	}

	r.mu.Lock()
	r.root = canonical
	r.mu.Unlock()

	r.logger.Info("root path updated", "path", canonical)
	return canonical, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
