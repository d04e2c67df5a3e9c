package tarriball

import (
	"fmt"
	"io"
	"slices"
	"strings"
)

var zeroBlock [BlockSize]byte

// WriteEntries writes entries as a complete archive, sorted by path and
// followed by the two-block terminator. Every path is validated before the
// first byte is written.
func (s *Service) WriteEntries(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if err := validatePath(e.Info().Path); err != nil {
			return err
		}
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		return strings.Compare(a.Info().Path, b.Info().Path)
	})
	for _, e := range sorted {
		if err := s.writeEntry(w, e); err != nil {
			return err
		}
	}

	for range 2 {
		if _, err := w.Write(zeroBlock[:]); err != nil {
			return fmt.Errorf("write terminator: %w", err)
		}
	}
	return nil
}

func (s *Service) writeEntry(w io.Writer, e Entry) error {
	info := e.Info()
	p, err := e.open(s.host)
	if err != nil {
		return err
	}
	defer p.Close()

	modTime := info.ModTime
	if modTime.IsZero() {
		modTime = s.clock()
	}
	hdr := Header{
		USTAR:    true,
		Path:     info.Path,
		Size:     p.size,
		Mode:     info.Mode.Value(),
		UID:      int64(info.UID),
		GID:      int64(info.GID),
		ModTime:  modTime.Unix(),
		Typeflag: p.typeflag,
	}
	if _, err := hdr.WriteTo(w); err != nil {
		return err
	}
	s.logger.Debug("append", "path", hdr.Path, "type", string(hdr.Typeflag), "size", hdr.Size)

	if p.body == nil {
		return nil
	}
	written, err := copyChunks(w, p.body, p.size, p.chunkSize)
	if err != nil {
		return fmt.Errorf("write %s: %w", info.Path, err)
	}
	if written != p.size {
		return &OpError{Op: "read file", Path: info.Path, Err: fmt.Errorf("got %d of %d bytes: %w", written, p.size, io.ErrUnexpectedEOF)}
	}
	if pad := padding(written); pad > 0 {
		if _, err := w.Write(zeroBlock[:pad]); err != nil {
			return fmt.Errorf("write padding for %s: %w", info.Path, err)
		}
	}
	return nil
}

// copyChunks copies at most n bytes from src to dst in reads of chunkSize.
// It stops early without error when src ends.
func copyChunks(dst io.Writer, src io.Reader, n int64, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, min(int64(chunkSize), max(n, 1)))
	var written int64
	for written < n {
		want := min(int64(len(buf)), n-written)
		nr, rerr := src.Read(buf[:want])
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return written, rerr
		}
	}
	return written, nil
}
