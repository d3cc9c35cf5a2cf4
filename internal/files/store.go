package files

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultMaxFileSize is the per-file upload limit applied when no
// explicit limit is configured.
const DefaultMaxFileSize = 10 << 20 // 10 MiB

// Incoming describes one uploaded file. Name is the client-suggested
// filename and may be empty, in which case a generated identifier is
// used. Size may be -1 when unknown; the limit is then enforced while
// copying.
type Incoming struct {
	Name   string
	Reader io.Reader
	Size   int64
}

// Store performs per-client file I/O under the registry's current
// root. It keeps no state of its own beyond policy values.
type Store struct {
	registry    *Registry
	maxFileSize int64
	logger      *slog.Logger
}

// NewStore constructs a Store. maxFileSize <= 0 selects
// DefaultMaxFileSize.
func NewStore(registry *Registry, maxFileSize int64, logger *slog.Logger) *Store {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{registry: registry, maxFileSize: maxFileSize, logger: logger}
}

// Resolve joins relPath against the current root and returns the
// absolute path of the regular file it names. Paths that are absolute,
// empty, or escape the root via parent-directory segments are rejected
// with ErrInvalidPath before any filesystem access.
func (s *Store) Resolve(relPath string) (string, error) {
	root, ok := s.registry.Get()
	if !ok {
		return "", ErrRootNotConfigured
	}

	if relPath == "" || filepath.IsAbs(relPath) || strings.ContainsRune(relPath, 0) {
		return "", ErrInvalidPath
	}
	cleaned := filepath.Clean(relPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}

	full := filepath.Join(root, cleaned)
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return full, nil
}

// Upload writes each incoming file under <root>/<clientID>, creating
// the client directory if needed. The returned slice holds the final
// filenames actually written, in input order. An individual file
// failure (including exceeding the size limit) skips that file and
// continues; only a directory-creation failure aborts the batch.
// Name collisions overwrite the existing file.
func (s *Store) Upload(clientID int64, incoming []Incoming) ([]string, error) {
	root, ok := s.registry.Get()
	if !ok {
		return nil, ErrRootNotConfigured
	}

	dir := filepath.Join(root, strconv.FormatInt(clientID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryCreate, err)
	}

	saved := make([]string, 0, len(incoming))
	for _, in := range incoming {
		if in.Size > s.maxFileSize {
			s.logger.Warn("rejecting oversized upload",
				"client_id", clientID, "name", in.Name, "size", in.Size)
			continue
		}

		name := sanitizeName(in.Name)
		if name == "" {
			name = uuid.NewString()
		}

		if err := s.writeFile(filepath.Join(dir, name), in.Reader); err != nil {
			s.logger.Warn("failed to save uploaded file",
				"client_id", clientID, "name", name, "error", err)
			continue
		}
		saved = append(saved, name)
	}
	return saved, nil
}

// ListClientFiles returns the names of regular files directly under
// the client's directory. A missing directory yields an empty list.
func (s *Store) ListClientFiles(clientID int64) ([]string, error) {
	root, ok := s.registry.Get()
	if !ok {
		return nil, ErrRootNotConfigured
	}

	dir := filepath.Join(root, strconv.FormatInt(clientID, 10))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read client directory: %w", err)
	}

	names := []string{}
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

var errFileTooLarge = errors.New("file exceeds size limit")

// writeFile copies the reader to a temporary file in the target
// directory, then renames it into place so concurrent writers of the
// same name race whole-file (last writer wins) rather than interleave.
func (s *Store) writeFile(target string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, s.maxFileSize+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if n > s.maxFileSize {
		return errFileTooLarge
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// sanitizeName reduces a suggested filename to a single safe path
// element. Anything that would escape the client directory collapses
// to the empty string, which callers replace with a generated name.
func sanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return ""
	}
	return base
}
