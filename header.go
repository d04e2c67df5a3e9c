package tarriball

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// BlockSize is the size of a header block and the payload alignment unit.
const BlockSize = 512

// Type flags understood by the codec. Any other byte is carried through
// unchanged.
const (
	TypeReg     byte = '0'
	TypeLink    byte = '1'
	TypeSymlink byte = '2'
	TypeChar    byte = '3'
	TypeBlock   byte = '4'
	TypeDir     byte = '5'
	TypeFifo    byte = '6'
)

const (
	ustarMagic   = "ustar"
	ustarVersion = "00"

	maxNameLen   = 100
	maxPrefixLen = 155
	maxMtimeLen  = 11
)

// Field offsets inside a header block.
const (
	offName     = 0
	offMode     = 100
	offUID      = 108
	offGID      = 116
	offSize     = 124
	offMtime    = 136
	offChksum   = 148
	offTypeflag = 156
	offLinkname = 157
	offMagic    = 257
	offVersion  = 263
	offUname    = 265
	offGname    = 297
	offDevmajor = 329
	offDevminor = 337
	offPrefix   = 345
)

// Header is the metadata of one archive member.
type Header struct {
	USTAR    bool
	Path     string
	Size     int64
	Mode     int64
	UID      int64
	GID      int64
	ModTime  int64
	Typeflag byte
	Linkname string
}

// Type returns the type flag with a NUL flag reported as a regular file.
func (h Header) Type() byte {
	if h.Typeflag == 0 {
		return TypeReg
	}
	return h.Typeflag
}

// IsDir reports whether the header describes a directory. Pre-UStar
// archives have no directory flag, so a zero-length regular entry whose
// path ends in a slash counts as one.
func (h Header) IsDir() bool {
	if h.USTAR {
		return h.Type() == TypeDir
	}
	return h.Type() == TypeReg && h.Size == 0 && strings.HasSuffix(h.Path, "/")
}

// IsFile reports whether the header describes a regular file.
func (h Header) IsFile() bool {
	return h.Type() == TypeReg
}

// Perm returns the permission bits of the header mode.
func (h Header) Perm() Mode {
	return DecodeMode(h.Mode)
}

// MarshalBinary encodes the header as one 512-byte block.
func (h Header) MarshalBinary() ([]byte, error) {
	return h.encode("")
}

// WriteTo writes the encoded header block to w.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	return h.WritePrefixedTo(w, "")
}

// WritePrefixedTo writes the encoded header with prefix moved out of the
// name field. The prefix is only used when the path starts with it.
func (h Header) WritePrefixedTo(w io.Writer, prefix string) (int64, error) {
	block, err := h.encode(prefix)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(block)
	return int64(n), err
}

func (h Header) encode(pathPrefix string) ([]byte, error) {
	if !h.USTAR {
		return nil, &FormatError{Reason: "only UStar headers can be written"}
	}
	if err := validatePath(h.Path); err != nil {
		return nil, err
	}

	name, prefix := h.Path, ""
	if pathPrefix != "" && strings.HasPrefix(h.Path, pathPrefix) {
		name, prefix = h.Path[len(pathPrefix):], pathPrefix
	}
	if h.IsDir() && !strings.HasSuffix(name, "/") {
		name += "/"
	}
	switch {
	case name == "":
		return nil, &FormatError{Reason: "header name is empty"}
	case len(name) >= maxNameLen:
		return nil, &FormatError{Reason: fmt.Sprintf("header name must be shorter than %d bytes: %s", maxNameLen, name)}
	case len(prefix) >= maxPrefixLen:
		return nil, &FormatError{Reason: fmt.Sprintf("header prefix must be shorter than %d bytes: %s", maxPrefixLen, prefix)}
	}

	mtime := h.ModTime
	if mtime > 0 && len(strconv.FormatInt(mtime, 8)) > maxMtimeLen {
		mtime = 0
	}

	block := make([]byte, BlockSize)
	for _, err := range []error{
		putString(block[offName:offMode], name),
		putOctal(block[offMode:offUID], h.Mode),
		putOctal(block[offUID:offGID], h.UID),
		putOctal(block[offGID:offSize], h.GID),
		putOctal(block[offSize:offMtime], h.Size),
		putOctal(block[offMtime:offChksum], mtime),
		putString(block[offLinkname:offMagic], h.Linkname),
		putString(block[offMagic:offVersion], ustarMagic),
		putString(block[offVersion:offUname], ustarVersion),
		putOctal(block[offDevmajor:offDevminor], 0),
		putOctal(block[offDevminor:offPrefix], 0),
		putString(block[offPrefix:], prefix),
	} {
		if err != nil {
			return nil, err
		}
	}
	if h.Typeflag >= 0x80 {
		return nil, &ValidationError{Path: h.Path, Reason: "type flag is not ASCII"}
	}
	block[offTypeflag] = h.Typeflag

	copy(block[offChksum:offTypeflag], fmt.Sprintf("%07o ", checksum(block)))
	return block, nil
}

// checksum sums the block as unsigned bytes with the checksum field read
// as eight spaces.
func checksum(block []byte) int64 {
	var sum int64
	for i, c := range block {
		if i >= offChksum && i < offTypeflag {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}

// signedChecksum is the historic variant that treats bytes as signed.
func signedChecksum(block []byte) int64 {
	var sum int64
	for i, c := range block {
		if i >= offChksum && i < offTypeflag {
			c = ' '
		}
		sum += int64(int8(c))
	}
	return sum
}

// VerifyChecksum reports whether the checksum stored in a raw header block
// matches its contents.
func VerifyChecksum(block []byte) bool {
	if len(block) != BlockSize {
		return false
	}
	stored := parseOctal(block[offChksum:offTypeflag])
	return stored == checksum(block) || stored == signedChecksum(block)
}

// ParseHeader decodes one 512-byte header block. The checksum, version,
// owner names and device numbers are not interpreted.
func ParseHeader(block []byte) (Header, error) {
	if len(block) != BlockSize {
		return Header{}, &FormatError{Reason: fmt.Sprintf("header block must be %d bytes, got %d", BlockSize, len(block))}
	}
	h := Header{
		USTAR:    parseString(block[offMagic:offVersion]) == ustarMagic,
		Path:     parseString(block[offName:offMode]),
		Mode:     parseOctal(block[offMode:offUID]),
		UID:      parseOctal(block[offUID:offGID]),
		GID:      parseOctal(block[offGID:offSize]),
		Size:     parseOctal(block[offSize:offMtime]),
		ModTime:  parseOctal(block[offMtime:offChksum]),
		Typeflag: block[offTypeflag],
		Linkname: parseString(block[offLinkname:offMagic]),
	}
	if prefix := parseString(block[offPrefix:]); prefix != "" {
		h.Path = prefix + "/" + h.Path
	}
	return h, nil
}
