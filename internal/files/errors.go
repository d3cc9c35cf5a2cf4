package files

import "errors"

var (
	// ErrRootNotConfigured indicates no root path is set, so no file
	// operation can resolve a target.
	ErrRootNotConfigured = errors.New("root path not configured")

	// ErrInvalidPath indicates a candidate root does not exist or is
	// not a directory, or a requested file path escapes the root.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNotFound indicates no regular file exists at the resolved
	// location.
	ErrNotFound = errors.New("file not found")

	// ErrDirectoryCreate indicates the per-client directory could not
	// be created, failing the whole upload batch.
	ErrDirectoryCreate = errors.New("failed to create client directory")
)
