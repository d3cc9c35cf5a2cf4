package service

import "github.com/vanshika/docstore/internal/files"

// FileService exposes the file store and root path registry to the
// transport as a single dependency surface.
type FileService struct {
	registry *files.Registry
	store    *files.Store
}

// NewFileService constructs a FileService.
func NewFileService(registry *files.Registry, store *files.Store) *FileService {
	return &FileService{registry: registry, store: store}
}

// RootPath returns the current root path; false when unset.
func (s *FileService) RootPath() (string, bool) {
	return s.registry.Get()
}

// SetRootPath validates and replaces the root path, returning the
// canonical form stored.
func (s *FileService) SetRootPath(candidate string) (string, error) {
	return s.registry.Set(candidate)
}

// ResolveFile maps a root-relative path to the absolute path of an
// existing regular file.
func (s *FileService) ResolveFile(relPath string) (string, error) {
	return s.store.Resolve(relPath)
}

// SaveUploads writes the incoming files for a client and returns the
// final filenames in input order.
func (s *FileService) SaveUploads(clientID int64, incoming []files.Incoming) ([]string, error) {
	return s.store.Upload(clientID, incoming)
}

// ListClientFiles lists the filenames stored for a client.
func (s *FileService) ListClientFiles(clientID int64) ([]string, error) {
	return s.store.ListClientFiles(clientID)
}
