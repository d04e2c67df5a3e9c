package tarriball

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/islishude/tarriball/hostfs"
)

// stream is the archive source shared by every record of one read loop.
type stream struct {
	r      io.Reader
	noSeek bool
	size   int64 // -1 until a seek needs it
}

func (s *stream) Read(p []byte) (int, error) { return s.r.Read(p) }

// skip discards exactly n bytes. Seekers are tried first; a source whose
// Seek fails (stdin attached to a pipe) is drained from then on.
func (s *stream) skip(n int64, chunkSize int) error {
	if n <= 0 {
		return nil
	}
	if sk, ok := s.r.(io.Seeker); ok && !s.noSeek {
		if pos, err := sk.Seek(n, io.SeekCurrent); err == nil {
			return s.checkSeek(sk, pos)
		}
		s.noSeek = true
	}
	copied, err := copyChunks(io.Discard, s.r, n, chunkSize)
	if err != nil {
		return err
	}
	if copied != n {
		return &FormatError{Reason: "archive ended inside a record"}
	}
	return nil
}

// checkSeek fails when a seek landed past the end of the source, which
// Seek itself allows.
func (s *stream) checkSeek(sk io.Seeker, pos int64) error {
	if s.size < 0 {
		end, err := sk.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		if _, err := sk.Seek(pos, io.SeekStart); err != nil {
			return err
		}
		s.size = end
	}
	if pos > s.size {
		return &FormatError{Reason: "archive ended inside a record"}
	}
	return nil
}

// Record is a cursor over the payload of one archive member. It is only
// valid inside the callback that received it.
type Record struct {
	hdr       Header
	src       *stream
	host      hostfs.Host
	pos       int64
	closed    bool
	chunkSize int
}

func (r *Record) Header() Header     { return r.hdr }
func (r *Record) Path() string       { return r.hdr.Path }
func (r *Record) Mode() Mode         { return r.hdr.Perm() }
func (r *Record) Size() int64        { return r.hdr.Size }
func (r *Record) UID() int64         { return r.hdr.UID }
func (r *Record) GID() int64         { return r.hdr.GID }
func (r *Record) ModTime() time.Time { return time.Unix(r.hdr.ModTime, 0) }
func (r *Record) Type() byte         { return r.hdr.Type() }
func (r *Record) Linkname() string   { return r.hdr.Linkname }
func (r *Record) IsDir() bool        { return r.hdr.IsDir() }
func (r *Record) IsFile() bool       { return r.hdr.IsFile() }
func (r *Record) Position() int64    { return r.pos }
func (r *Record) Remaining() int64   { return r.hdr.Size - r.pos }
func (r *Record) EOF() bool          { return r.pos >= r.hdr.Size }

// Read reads payload bytes, never past the end of the record. It returns
// io.EOF at the end of the payload and after Close.
func (r *Record) Read(p []byte) (int, error) {
	if r.closed || r.EOF() {
		return 0, io.EOF
	}
	if rem := r.Remaining(); int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := r.src.Read(p)
	r.pos += int64(n)
	if err == io.EOF {
		if r.EOF() {
			err = nil
		} else {
			err = io.ErrUnexpectedEOF
		}
	}
	return n, err
}

// ReadN returns the next n payload bytes, fewer at the end of the record,
// or nil once the record is exhausted or closed.
func (r *Record) ReadN(n int) ([]byte, error) {
	if r.closed || r.EOF() {
		return nil, nil
	}
	buf := make([]byte, min(int64(max(n, 0)), r.Remaining()))
	read, err := io.ReadFull(r, buf)
	return buf[:read], err
}

// Advance discards up to n payload bytes.
func (r *Record) Advance(n int64, chunkSize int) error {
	if r.closed {
		return nil
	}
	return r.advance(n, chunkSize)
}

func (r *Record) advance(n int64, chunkSize int) error {
	n = min(n, r.Remaining())
	if n <= 0 {
		return nil
	}
	if err := r.src.skip(n, chunkSize); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Close moves the source to the next header block by skipping the unread
// payload and its padding. Further calls do nothing.
func (r *Record) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.advance(r.Remaining(), r.chunkSize); err != nil {
		return err
	}
	return r.src.skip(padding(r.pos), r.chunkSize)
}

// ExtractTo writes the record to path on the host: a directory gets its
// mode applied, a regular file is created from the payload and then gets
// its mode applied. The record must not have been read from.
func (r *Record) ExtractTo(path string, chunkSize int) error {
	if r.pos != 0 {
		return &ValidationError{Path: r.hdr.Path, Reason: "record has already been read from"}
	}
	switch {
	case r.IsDir():
		if err := r.host.Chmod(path, r.hdr.Mode); err != nil {
			return &OpError{Op: "change directory mode", Path: path, Err: err}
		}
	case r.IsFile():
		if err := r.writeFile(path, chunkSize); err != nil {
			return &OpError{Op: "extract file", Path: path, Err: err}
		}
		if err := r.host.Chmod(path, r.hdr.Mode); err != nil {
			return &OpError{Op: "change file mode", Path: path, Err: err}
		}
	default:
		return &ValidationError{Path: r.hdr.Path, Reason: fmt.Sprintf("cannot extract record of type %q", r.Type())}
	}
	return nil
}

func (r *Record) writeFile(path string, chunkSize int) error {
	w, err := r.host.Create(path)
	if err != nil {
		return err
	}
	_, err = copyChunks(w, r, r.Remaining(), chunkSize)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

// ExtractInto extracts the record below base, creating missing parent
// directories. Paths with a parent segment are refused.
func (r *Record) ExtractInto(base string, chunkSize int) error {
	if !r.IsDir() && !r.IsFile() {
		return &ValidationError{Path: r.hdr.Path, Reason: fmt.Sprintf("cannot extract record of type %q", r.Type())}
	}
	rel := hostfs.ConvertPath(r.hdr.Path, r.host.Separator())
	if hasParentSegment(r.hdr.Path) || hasParentSegment(filepath.ToSlash(rel)) {
		return &ValidationError{Path: r.hdr.Path, Reason: "path references a parent directory"}
	}

	target := filepath.Join(base, rel)
	dir := target
	if !r.IsDir() {
		dir = filepath.Dir(target)
	}
	if err := r.host.MkdirAll(dir); err != nil {
		return &OpError{Op: "create directory", Path: dir, Err: err}
	}
	return r.ExtractTo(target, chunkSize)
}
