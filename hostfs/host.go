// Package hostfs holds the filesystem collaborators the archive codec depends on,
// along with a host adapter backed by the os package and an adapter for any
// billy.Filesystem (including an in-memory one for tests).
package hostfs

import (
	"errors"
	"io"
	"time"
)

// ErrUnsupported is returned by adapters when the underlying filesystem
// cannot perform the requested operation.
var ErrUnsupported = errors.New("hostfs: operation not supported")

// FileInfo describes one filesystem object as seen during traversal.
type FileInfo struct {
	// Path is the host path of the object, as reached from the walk root.
	Path    string
	Dir     bool
	Regular bool
	// Mode holds the permission bits only.
	Mode    int64
	UID     int
	GID     int
	Size    int64
	ModTime time.Time
}

// Host is the set of filesystem primitives used while packing and extracting.
type Host interface {
	// Walk visits root and all of its descendants, parents before children.
	// Siblings are visited in lexical order. Symlinks are not followed.
	Walk(root string, fn func(FileInfo) error) error
	Stat(path string) (FileInfo, error)
	Open(path string) (io.ReadCloser, error)
	// Create opens path for binary writing, truncating any existing file.
	Create(path string) (io.WriteCloser, error)
	Chmod(path string, mode int64) error
	// MkdirAll creates path and any missing parents. It succeeds when path
	// already exists as a directory.
	MkdirAll(path string) error
	Separator() byte
}
