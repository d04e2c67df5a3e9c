package tarriball

import (
	"archive/tar"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHeaderMarshalLayout(t *testing.T) {
	h := Header{
		USTAR:    true,
		Path:     "dir/file.txt",
		Size:     5,
		Mode:     0o644,
		UID:      1000,
		GID:      100,
		ModTime:  fixedTime.Unix(),
		Typeflag: TypeReg,
	}
	block, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if len(block) != BlockSize {
		t.Fatalf("block length = %d", len(block))
	}

	fields := []struct {
		name       string
		start, end int
		want       string
	}{
		{"name", 0, 12, "dir/file.txt"},
		{"mode", 100, 108, "0000644 "},
		{"uid", 108, 116, "0001750 "},
		{"gid", 116, 124, "0000144 "},
		{"size", 124, 136, "00000000005 "},
		{"typeflag", 156, 157, "0"},
		{"magic", 257, 263, "ustar\x00"},
		{"version", 263, 265, "00"},
		{"devmajor", 329, 337, "0000000 "},
		{"devminor", 337, 345, "0000000 "},
	}
	for _, f := range fields {
		if got := string(block[f.start:f.end]); got != f.want {
			t.Fatalf("%s field = %q, want %q", f.name, got, f.want)
		}
	}
	if !bytes.Equal(block[offUname:offDevmajor], make([]byte, offDevmajor-offUname)) {
		t.Fatalf("owner names should be NUL")
	}
	if !bytes.Equal(block[offPrefix:], make([]byte, BlockSize-offPrefix)) {
		t.Fatalf("prefix should be NUL")
	}

	chk := block[offChksum:offTypeflag]
	if chk[7] != ' ' {
		t.Fatalf("checksum field = %q, want trailing space", chk)
	}
	for _, c := range chk[:7] {
		if c < '0' || c > '7' {
			t.Fatalf("checksum field = %q, want 7 octal digits", chk)
		}
	}
	if !VerifyChecksum(block) {
		t.Fatalf("VerifyChecksum() = false for a fresh header")
	}
	block[0] = 'X'
	if VerifyChecksum(block) {
		t.Fatalf("VerifyChecksum() = true after corrupting the name")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Header
		want Header
	}{
		{
			name: "file",
			in:   Header{USTAR: true, Path: "a/b.txt", Size: 42, Mode: 0o600, UID: 1, GID: 2, ModTime: 1700000000, Typeflag: TypeReg},
			want: Header{USTAR: true, Path: "a/b.txt", Size: 42, Mode: 0o600, UID: 1, GID: 2, ModTime: 1700000000, Typeflag: TypeReg},
		},
		{
			name: "directory gets a trailing slash",
			in:   Header{USTAR: true, Path: "a", Mode: 0o755, ModTime: 1, Typeflag: TypeDir},
			want: Header{USTAR: true, Path: "a/", Mode: 0o755, ModTime: 1, Typeflag: TypeDir},
		},
		{
			name: "linkname is carried",
			in:   Header{USTAR: true, Path: "l", Mode: 0o777, Typeflag: TypeSymlink, Linkname: "target"},
			want: Header{USTAR: true, Path: "l", Mode: 0o777, Typeflag: TypeSymlink, Linkname: "target"},
		},
		{
			name: "oversized mtime is written as zero",
			in:   Header{USTAR: true, Path: "m", ModTime: 0o100000000000, Typeflag: TypeReg},
			want: Header{USTAR: true, Path: "m", ModTime: 0, Typeflag: TypeReg},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			block, err := tc.in.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary() error = %v", err)
			}
			got, err := ParseHeader(block)
			if err != nil {
				t.Fatalf("ParseHeader() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("ParseHeader() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestHeaderWritePrefixed(t *testing.T) {
	h := Header{USTAR: true, Path: "long/dir/file", Mode: 0o644, Typeflag: TypeReg}

	var buf bytes.Buffer
	n, err := h.WritePrefixedTo(&buf, "long/dir")
	if err != nil {
		t.Fatalf("WritePrefixedTo() error = %v", err)
	}
	if n != BlockSize {
		t.Fatalf("WritePrefixedTo() n = %d", n)
	}
	block := buf.Bytes()
	if got := parseString(block[offName:offMode]); got != "/file" {
		t.Fatalf("name field = %q", got)
	}
	if got := parseString(block[offPrefix:]); got != "long/dir" {
		t.Fatalf("prefix field = %q", got)
	}
	parsed, err := ParseHeader(block)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if parsed.Path != "long/dir//file" {
		t.Fatalf("parsed path = %q", parsed.Path)
	}

	buf.Reset()
	if _, err := h.WritePrefixedTo(&buf, "other"); err != nil {
		t.Fatalf("WritePrefixedTo() error = %v", err)
	}
	if got := parseString(buf.Bytes()[offPrefix:]); got != "" {
		t.Fatalf("unrelated prefix was used: %q", got)
	}
	if got := parseString(buf.Bytes()[offName:offMode]); got != "long/dir/file" {
		t.Fatalf("name field = %q", got)
	}
}

func TestHeaderMarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		h    Header
		want error
	}{
		{"not ustar", Header{Path: "a", Typeflag: TypeReg}, ErrFormat},
		{"parent segment", Header{USTAR: true, Path: "a/../b", Typeflag: TypeReg}, ErrValidation},
		{"leading parent", Header{USTAR: true, Path: "../b", Typeflag: TypeReg}, ErrValidation},
		{"non ascii", Header{USTAR: true, Path: "café", Typeflag: TypeReg}, ErrValidation},
		{"empty name", Header{USTAR: true, Path: "", Typeflag: TypeReg}, ErrFormat},
		{"name too long", Header{USTAR: true, Path: strings.Repeat("a", 100), Typeflag: TypeReg}, ErrFormat},
		{"dir name too long after slash", Header{USTAR: true, Path: strings.Repeat("a", 99), Typeflag: TypeDir}, ErrFormat},
		{"negative uid", Header{USTAR: true, Path: "a", UID: -1, Typeflag: TypeReg}, ErrValidation},
		{"size too wide", Header{USTAR: true, Path: "a", Size: 0o100000000000, Typeflag: TypeReg}, ErrValidation},
		{"linkname too long", Header{USTAR: true, Path: "a", Linkname: strings.Repeat("l", 101), Typeflag: TypeSymlink}, ErrValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := tc.h.WriteTo(&buf)
			if !errors.Is(err, tc.want) {
				t.Fatalf("WriteTo() error = %v, want %v", err, tc.want)
			}
			if buf.Len() != 0 {
				t.Fatalf("WriteTo() wrote %d bytes on error", buf.Len())
			}
		})
	}

	if _, err := (Header{USTAR: true, Path: strings.Repeat("a", 99), Typeflag: TypeReg}).MarshalBinary(); err != nil {
		t.Fatalf("99-byte name should fit: %v", err)
	}
}

func TestParseHeaderFromArchiveTar(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     "pkg/readme.md",
		Mode:     0o640,
		Uid:      501,
		Gid:      20,
		Size:     3,
		ModTime:  fixedTime,
		Format:   tar.FormatUSTAR,
	}); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}

	block := buf.Bytes()[:BlockSize]
	if !VerifyChecksum(block) {
		t.Fatalf("VerifyChecksum() = false for archive/tar header")
	}
	h, err := ParseHeader(block)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	want := Header{USTAR: true, Path: "pkg/readme.md", Size: 3, Mode: 0o640, UID: 501, GID: 20, ModTime: fixedTime.Unix(), Typeflag: TypeReg}
	if h != want {
		t.Fatalf("ParseHeader() = %+v, want %+v", h, want)
	}
}

func TestParseHeaderLenient(t *testing.T) {
	if _, err := ParseHeader(make([]byte, 100)); !errors.Is(err, ErrFormat) {
		t.Fatalf("short block error = %v", err)
	}

	block := make([]byte, BlockSize)
	copy(block[offName:], "old/")
	copy(block[offMode:], "  644\x00")
	copy(block[offSize:], "12x4")
	h, err := ParseHeader(block)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if h.USTAR {
		t.Fatalf("USTAR = true without magic")
	}
	if h.Mode != 0o644 {
		t.Fatalf("Mode = %o", h.Mode)
	}
	if h.Size != 0o12 {
		t.Fatalf("Size = %o, want leading digits only", h.Size)
	}
	if h.UID != 0 || h.ModTime != 0 {
		t.Fatalf("empty fields should parse as zero: %+v", h)
	}
	if h.Typeflag != 0 || h.Type() != TypeReg {
		t.Fatalf("NUL type flag = %q, Type() = %q", h.Typeflag, h.Type())
	}
}

func TestHeaderClassifiers(t *testing.T) {
	tests := []struct {
		name   string
		h      Header
		isDir  bool
		isFile bool
	}{
		{"ustar dir", Header{USTAR: true, Path: "d/", Typeflag: TypeDir}, true, false},
		{"ustar file with slash", Header{USTAR: true, Path: "d/", Typeflag: TypeReg}, false, true},
		{"legacy dir", Header{Path: "d/", Typeflag: 0}, true, true},
		{"legacy non-empty", Header{Path: "d/", Size: 1, Typeflag: TypeReg}, false, true},
		{"legacy file", Header{Path: "f", Typeflag: TypeReg}, false, true},
		{"symlink", Header{USTAR: true, Path: "l", Typeflag: TypeSymlink}, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.h.IsDir(); got != tc.isDir {
				t.Fatalf("IsDir() = %v, want %v", got, tc.isDir)
			}
			if got := tc.h.IsFile(); got != tc.isFile {
				t.Fatalf("IsFile() = %v, want %v", got, tc.isFile)
			}
		})
	}
}
