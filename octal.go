package tarriball

import (
	"strconv"
	"strings"
)

// fieldCutset is stripped from both ends of every header field on read.
const fieldCutset = " \t\n\v\f\r\x00"

func putString(dst []byte, s string) error {
	if !isASCII(s) {
		return &ValidationError{Path: s, Reason: "header field is not ASCII"}
	}
	if len(s) > len(dst) {
		return &ValidationError{Path: s, Reason: "header field is longer than allowed"}
	}
	copy(dst, s)
	return nil
}

// putOctal writes v as width-1 zero-padded octal digits followed by a space.
func putOctal(dst []byte, v int64) error {
	if v < 0 {
		return &ValidationError{Reason: "header integer is negative: " + strconv.FormatInt(v, 10)}
	}
	digits := strconv.FormatInt(v, 8)
	width := len(dst) - 1
	if len(digits) > width {
		return &ValidationError{Reason: "header integer is longer than allowed: " + strconv.FormatInt(v, 10)}
	}
	for i := range width - len(digits) {
		dst[i] = '0'
	}
	copy(dst[width-len(digits):], digits)
	dst[width] = ' '
	return nil
}

func parseString(b []byte) string {
	return strings.Trim(string(b), fieldCutset)
}

// parseOctal reads the leading octal digits of a trimmed field. An empty
// field and a field starting with a non-octal byte are both zero.
func parseOctal(b []byte) int64 {
	s := parseString(b)
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '7' {
			break
		}
		n = n<<3 | int64(c-'0')
	}
	return n
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func hasParentSegment(p string) bool {
	for seg := range strings.SplitSeq(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// validatePath rejects archive paths that cannot be stored or that could
// escape an extraction directory.
func validatePath(p string) error {
	if !isASCII(p) {
		return &ValidationError{Path: p, Reason: "path contains non-ASCII bytes"}
	}
	if hasParentSegment(p) {
		return &ValidationError{Path: p, Reason: "path references a parent directory"}
	}
	return nil
}

func isBlank(block []byte) bool {
	for _, c := range block {
		if strings.IndexByte(fieldCutset, c) < 0 {
			return false
		}
	}
	return true
}

// padding returns the number of NUL bytes that align n to a block boundary.
func padding(n int64) int64 {
	return (BlockSize - n%BlockSize) % BlockSize
}
