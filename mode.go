package tarriball

import "fmt"

// Bits is one read/write/execute permission triple.
type Bits struct {
	Read    bool
	Write   bool
	Execute bool
}

// DecodeBits returns the permission triple of the low three bits of n.
func DecodeBits(n int64) Bits {
	return Bits{
		Read:    n&4 != 0,
		Write:   n&2 != 0,
		Execute: n&1 != 0,
	}
}

// Value returns the octal digit of the triple, 0 through 7.
func (b Bits) Value() int64 {
	var v int64
	if b.Execute {
		v += 1
	}
	if b.Write {
		v += 2
	}
	if b.Read {
		v += 4
	}
	return v
}

func (b Bits) String() string {
	s := []byte("---")
	if b.Read {
		s[0] = 'r'
	}
	if b.Write {
		s[1] = 'w'
	}
	if b.Execute {
		s[2] = 'x'
	}
	return string(s)
}

// Mode is the owner/group/other permission set of an archive member.
type Mode struct {
	Owner Bits
	Group Bits
	Other Bits
}

var (
	// DefaultDirMode is rwxr-xr-x (0755).
	DefaultDirMode = Mode{
		Owner: Bits{Read: true, Write: true, Execute: true},
		Group: Bits{Read: true, Execute: true},
		Other: Bits{Read: true, Execute: true},
	}

	// DefaultFileMode is rw-r--r-- (0644).
	DefaultFileMode = Mode{
		Owner: Bits{Read: true, Write: true},
		Group: Bits{Read: true},
		Other: Bits{Read: true},
	}
)

// DecodeMode builds a Mode from the last three octal digits of n. Missing
// leading digits count as zero, and anything above them (file type, setuid,
// sticky) is ignored.
func DecodeMode(n int64) Mode {
	return Mode{
		Owner: DecodeBits(n >> 6 & 7),
		Group: DecodeBits(n >> 3 & 7),
		Other: DecodeBits(n & 7),
	}
}

// Octal returns the three octal digits of the mode, e.g. "755".
func (m Mode) Octal() string {
	return fmt.Sprintf("%d%d%d", m.Owner.Value(), m.Group.Value(), m.Other.Value())
}

// Value returns the integer whose octal form is m.Octal(); this is the
// number stored in the header mode field.
func (m Mode) Value() int64 {
	return m.Owner.Value()<<6 | m.Group.Value()<<3 | m.Other.Value()
}

// String renders the mode the way ls does, e.g. "rwxr-xr-x".
func (m Mode) String() string {
	return m.Owner.String() + m.Group.String() + m.Other.String()
}
