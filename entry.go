package tarriball

import (
	"bytes"
	"io"
	"time"

	"github.com/islishude/tarriball/hostfs"
)

// DefaultChunkSize is the read size used when streaming file payloads.
const DefaultChunkSize = 2048

// EntryInfo is the metadata shared by every entry variant. A zero ModTime
// is replaced with the service clock when the entry is written.
type EntryInfo struct {
	Path    string
	Mode    Mode
	UID     int
	GID     int
	ModTime time.Time
}

// Entry is an item to be written into an archive. The variants are
// DirectoryEntry, BufferEntry and FileEntry.
type Entry interface {
	Info() EntryInfo
	open(host hostfs.Host) (payload, error)
}

// payload is the body of an entry as seen by the writer. body is nil when
// size is zero.
type payload struct {
	typeflag  byte
	size      int64
	body      io.Reader
	closer    io.Closer
	chunkSize int
}

func (p payload) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// DirectoryEntry is a directory with no payload.
type DirectoryEntry struct {
	EntryInfo
}

// NewDirectoryEntry returns a directory entry with mode 0755.
func NewDirectoryEntry(path string, modTime time.Time) DirectoryEntry {
	return DirectoryEntry{EntryInfo{Path: path, Mode: DefaultDirMode, ModTime: modTime}}
}

func (e DirectoryEntry) Info() EntryInfo { return e.EntryInfo }

func (e DirectoryEntry) open(hostfs.Host) (payload, error) {
	return payload{typeflag: TypeDir}, nil
}

// BufferEntry is a regular file whose content is held in memory.
type BufferEntry struct {
	EntryInfo
	Data []byte
}

// NewBufferEntry returns a regular file entry with mode 0644.
func NewBufferEntry(path string, data []byte, modTime time.Time) BufferEntry {
	return BufferEntry{EntryInfo: EntryInfo{Path: path, Mode: DefaultFileMode, ModTime: modTime}, Data: data}
}

func (e BufferEntry) Info() EntryInfo { return e.EntryInfo }

func (e BufferEntry) open(hostfs.Host) (payload, error) {
	p := payload{typeflag: TypeReg, size: int64(len(e.Data))}
	if p.size > 0 {
		p.body = bytes.NewReader(e.Data)
	}
	return p, nil
}

// FileEntry is a regular file whose content is read from the host when the
// entry is written. The size is taken at that moment.
type FileEntry struct {
	EntryInfo
	Source    string
	ChunkSize int
}

// NewFileEntry returns a regular file entry with mode 0644 that reads its
// content from source.
func NewFileEntry(path, source string, modTime time.Time) FileEntry {
	return FileEntry{EntryInfo: EntryInfo{Path: path, Mode: DefaultFileMode, ModTime: modTime}, Source: source}
}

func (e FileEntry) Info() EntryInfo { return e.EntryInfo }

func (e FileEntry) open(host hostfs.Host) (payload, error) {
	fi, err := host.Stat(e.Source)
	if err != nil {
		return payload{}, &OpError{Op: "read file", Path: e.Source, Err: err}
	}
	p := payload{typeflag: TypeReg, size: fi.Size, chunkSize: e.ChunkSize}
	if p.size == 0 {
		return p, nil
	}
	rc, err := host.Open(e.Source)
	if err != nil {
		return payload{}, &OpError{Op: "read file", Path: e.Source, Err: err}
	}
	p.body, p.closer = rc, rc
	return p, nil
}
