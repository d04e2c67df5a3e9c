package local

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/islishude/tarriball/internal/locator"
)

// ArchiveStore opens archives on the local filesystem or on stdio. Nil
// streams fall back to os.Stdin and os.Stdout.
type ArchiveStore struct {
	Stdin  io.Reader
	Stdout io.Writer
}

type Metadata struct {
	Size int64
}

func (s *ArchiveStore) OpenReader(ref locator.Ref) (io.ReadCloser, Metadata, error) {
	switch ref.Kind {
	case locator.KindLocal:
		f, err := os.Open(ref.Path)
		if err != nil {
			return nil, Metadata{}, err
		}
		meta := Metadata{}
		if st, err := f.Stat(); err == nil {
			meta.Size = st.Size()
		}
		return f, meta, nil
	case locator.KindStdio:
		in := s.Stdin
		if in == nil {
			in = os.Stdin
		}
		return io.NopCloser(in), Metadata{}, nil
	default:
		return nil, Metadata{}, fmt.Errorf("unsupported local archive ref kind %s", ref.Kind)
	}
}

// OpenWriter creates the archive file and any missing parent directories.
func (s *ArchiveStore) OpenWriter(ref locator.Ref) (io.WriteCloser, error) {
	switch ref.Kind {
	case locator.KindLocal:
		if dir := filepath.Dir(ref.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return os.Create(ref.Path)
	case locator.KindStdio:
		out := s.Stdout
		if out == nil {
			out = os.Stdout
		}
		return nopWriteCloser{w: out}, nil
	default:
		return nil, fmt.Errorf("unsupported local archive ref kind %s", ref.Kind)
	}
}

type nopWriteCloser struct{ w io.Writer }

func (n nopWriteCloser) Write(p []byte) (int, error) { return n.w.Write(p) }
func (nopWriteCloser) Close() error                  { return nil }
