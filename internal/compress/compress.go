package compress

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

type Type string

const (
	Auto  Type = "auto"
	None  Type = "none"
	Gzip  Type = "gzip"
	Bzip2 Type = "bzip2"
	Xz    Type = "xz"
	Zstd  Type = "zstd"
	Lz4   Type = "lz4"
)

func FromString(v string) Type {
	switch strings.ToLower(v) {
	case "none":
		return None
	case "gzip":
		return Gzip
	case "bzip2":
		return Bzip2
	case "xz":
		return Xz
	case "zstd":
		return Zstd
	case "lz4":
		return Lz4
	default:
		return Auto
	}
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

// NewWriter layers compression of type t over dst. level is 1 through 9;
// nil keeps the algorithm default. Closing the result flushes the
// compressor and then closes dst.
func NewWriter(dst io.WriteCloser, t Type, level *int) (io.WriteCloser, error) {
	if level != nil && (*level < 1 || *level > 9) {
		return nil, fmt.Errorf("compression level %d out of range 1-9", *level)
	}
	var (
		zw  io.WriteCloser
		err error
	)
	switch t {
	case Auto, None:
		return dst, nil
	case Gzip:
		if level == nil {
			zw = gzip.NewWriter(dst)
		} else {
			zw, err = gzip.NewWriterLevel(dst, *level)
		}
	case Bzip2:
		cfg := &bzip2.WriterConfig{Level: bzip2.BestSpeed}
		if level != nil {
			cfg.Level = *level
		}
		zw, err = bzip2.NewWriter(dst, cfg)
	case Xz:
		cfg := xz.WriterConfig{}
		if level != nil {
			dict := 1 << (18 + *level)
			cfg.DictCap = min(dict, 1<<26)
		}
		zw, err = cfg.NewWriter(dst)
	case Zstd:
		var zopts []zstd.EOption
		if level != nil {
			zopts = append(zopts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(*level)))
		}
		zw, err = zstd.NewWriter(dst, zopts...)
	case Lz4:
		lw := lz4.NewWriter(dst)
		if level != nil {
			err = lw.Apply(lz4.CompressionLevelOption(lz4Levels[*level-1]))
		}
		zw = lw
	default:
		return nil, fmt.Errorf("unsupported compression type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s writer: %w", t, err)
	}
	return &stackedWriteCloser{writer: zw, dst: dst}, nil
}

// NewReader layers decompression over src. With explicit set to Auto the
// type is detected from magic bytes, then from the extension of hint.
func NewReader(src io.ReadCloser, explicit Type, hint string) (io.ReadCloser, Type, error) {
	if explicit != Auto {
		r, err := wrapReaderByType(src, explicit)
		return r, explicit, err
	}
	br := bufio.NewReader(src)
	magic, _ := br.Peek(8)
	t := detectByMagic(magic)
	if t == Auto {
		t = detectByExt(hint)
	}
	if t == Auto {
		t = None
	}
	wrapped, err := wrapReader(br, src, t)
	return wrapped, t, err
}

func wrapReaderByType(src io.ReadCloser, t Type) (io.ReadCloser, error) {
	if t == None {
		return src, nil
	}
	br := bufio.NewReader(src)
	return wrapReader(br, src, t)
}

func wrapReader(reader io.Reader, src io.Closer, t Type) (io.ReadCloser, error) {
	switch t {
	case None:
		return &readCloser{reader: reader, closer: src}, nil
	case Gzip:
		zr, err := gzip.NewReader(reader)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{reader: zr, closers: []io.Closer{zr, src}}, nil
	case Bzip2:
		zr, err := bzip2.NewReader(reader, nil)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{reader: zr, closers: []io.Closer{zr, src}}, nil
	case Xz:
		zr, err := xz.NewReader(reader)
		if err != nil {
			return nil, err
		}
		return &readCloser{reader: zr, closer: src}, nil
	case Zstd:
		zr, err := zstd.NewReader(reader)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{reader: zr, closers: []io.Closer{zr.IOReadCloser(), src}}, nil
	case Lz4:
		return &readCloser{reader: lz4.NewReader(reader), closer: src}, nil
	default:
		return nil, fmt.Errorf("unsupported compression type %q", t)
	}
}

func detectByMagic(magic []byte) Type {
	switch {
	case bytes.HasPrefix(magic, []byte{0x1f, 0x8b}):
		return Gzip
	case bytes.HasPrefix(magic, []byte{'B', 'Z', 'h'}):
		return Bzip2
	case bytes.HasPrefix(magic, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}):
		return Xz
	case bytes.HasPrefix(magic, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		return Zstd
	case bytes.HasPrefix(magic, []byte{0x04, 0x22, 0x4d, 0x18}):
		return Lz4
	default:
		return Auto
	}
}

func detectByExt(name string) Type {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".gz", ".tgz":
		return Gzip
	case ".bz2", ".tbz2", ".tbz":
		return Bzip2
	case ".xz", ".txz":
		return Xz
	case ".zst", ".tzst", ".zstd":
		return Zstd
	case ".lz4", ".tlz4":
		return Lz4
	default:
		return Auto
	}
}

// Extension returns the conventional file suffix for t, or "" for none.
func Extension(t Type) string {
	switch t {
	case Gzip:
		return ".gz"
	case Bzip2:
		return ".bz2"
	case Xz:
		return ".xz"
	case Zstd:
		return ".zst"
	case Lz4:
		return ".lz4"
	default:
		return ""
	}
}

type readCloser struct {
	reader io.Reader
	closer io.Closer
}

func (r *readCloser) Read(p []byte) (int, error) { return r.reader.Read(p) }
func (r *readCloser) Close() error               { return r.closer.Close() }

type multiReadCloser struct {
	reader  io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Read(p []byte) (int, error) { return m.reader.Read(p) }

func (m *multiReadCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// stackedWriteCloser closes the compressor before the destination so the
// trailer reaches it.
type stackedWriteCloser struct {
	writer io.WriteCloser
	dst    io.Closer
}

func (w *stackedWriteCloser) Write(p []byte) (int, error) { return w.writer.Write(p) }

func (w *stackedWriteCloser) Close() error {
	var first error
	if err := w.writer.Close(); err != nil {
		first = err
	}
	if err := w.dst.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
