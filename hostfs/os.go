package hostfs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// OS is the production Host backed by the local filesystem. Relative paths
// are resolved against an optional base directory.
type OS struct {
	base string
}

var _ Host = (*OS)(nil)

type Option func(*OS)

// WithBase resolves relative paths against dir instead of the working directory.
func WithBase(dir string) Option {
	return func(h *OS) {
		h.base = dir
	}
}

// NewOS returns a Host over the local filesystem.
func NewOS(opts ...Option) *OS {
	h := &OS{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Base returns the directory relative paths are resolved against.
func (h *OS) Base() string {
	return h.base
}

func (h *OS) realpath(p string) string {
	if h.base == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(h.base, p)
}

// Walk visits root and its descendants in lexical order without following symlinks.
func (h *OS) Walk(root string, fn func(FileInfo) error) error {
	realRoot := h.realpath(root)
	return filepath.WalkDir(realRoot, func(current string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(realRoot, current)
		if err != nil {
			return err
		}
		name := root
		if rel != "." {
			name = filepath.Join(root, rel)
		}
		return fn(convertFileInfo(name, st))
	})
}

// Stat follows symlinks, like os.Stat.
func (h *OS) Stat(p string) (FileInfo, error) {
	st, err := os.Stat(h.realpath(p))
	if err != nil {
		return FileInfo{}, err
	}
	return convertFileInfo(p, st), nil
}

func (h *OS) Open(p string) (io.ReadCloser, error) {
	return os.Open(h.realpath(p))
}

// Create truncates an existing file.
func (h *OS) Create(p string) (io.WriteCloser, error) {
	return os.OpenFile(h.realpath(p), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
}

// Chmod sets the permission bits of p to mode.
func (h *OS) Chmod(p string, mode int64) error {
	return chmod(h.realpath(p), mode)
}

// MkdirAll creates p and any missing parents with mode 0755.
func (h *OS) MkdirAll(p string) error {
	return os.MkdirAll(h.realpath(p), 0o755)
}

// Separator returns filepath.Separator.
func (h *OS) Separator() byte {
	return filepath.Separator
}

func convertFileInfo(name string, st fs.FileInfo) FileInfo {
	fi := FileInfo{
		Path:    name,
		Dir:     st.IsDir(),
		Regular: st.Mode().IsRegular(),
		Mode:    int64(st.Mode().Perm()),
		ModTime: st.ModTime(),
	}
	// Size is only meaningful for regular files.
	if fi.Regular {
		fi.Size = st.Size()
	}
	fi.UID, fi.GID = owner(st)
	return fi
}
