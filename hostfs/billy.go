package hostfs

import (
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

// Billy adapts a billy.Filesystem to Host. Paths always use '/'.
type Billy struct {
	fs billy.Filesystem
}

var _ Host = (*Billy)(nil)

// NewBilly returns a Host over bfs.
func NewBilly(bfs billy.Filesystem) *Billy {
	return &Billy{fs: bfs}
}

// NewMemory returns a Host backed by an empty in-memory filesystem.
func NewMemory() *Billy {
	return NewBilly(memfs.New())
}

// Filesystem returns the wrapped filesystem.
func (h *Billy) Filesystem() billy.Filesystem {
	return h.fs
}

// Walk visits root and its descendants, sorting the entries of each directory.
func (h *Billy) Walk(root string, fn func(FileInfo) error) error {
	st, err := h.fs.Lstat(root)
	if err != nil {
		return err
	}
	return h.walk(root, st, fn)
}

func (h *Billy) walk(p string, st fs.FileInfo, fn func(FileInfo) error) error {
	if err := fn(convertFileInfo(p, st)); err != nil {
		return err
	}
	if !st.IsDir() {
		return nil
	}
	children, err := h.fs.ReadDir(p)
	if err != nil {
		return err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })
	for _, child := range children {
		if err := h.walk(h.fs.Join(p, child.Name()), child, fn); err != nil {
			return err
		}
	}
	return nil
}

func (h *Billy) Stat(p string) (FileInfo, error) {
	st, err := h.fs.Stat(p)
	if err != nil {
		return FileInfo{}, err
	}
	return convertFileInfo(p, st), nil
}

func (h *Billy) Open(p string) (io.ReadCloser, error) {
	return h.fs.Open(p)
}

func (h *Billy) Create(p string) (io.WriteCloser, error) {
	return h.fs.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
}

// Chmod requires the wrapped filesystem to implement billy.Change.
func (h *Billy) Chmod(p string, mode int64) error {
	ch, ok := h.fs.(billy.Change)
	if !ok {
		return &fs.PathError{Op: "chmod", Path: p, Err: ErrUnsupported}
	}
	return ch.Chmod(p, fs.FileMode(mode).Perm())
}

// MkdirAll creates p and any missing parents.
func (h *Billy) MkdirAll(p string) error {
	return h.fs.MkdirAll(p, 0o755)
}

// Separator always returns '/'.
func (h *Billy) Separator() byte {
	return '/'
}
