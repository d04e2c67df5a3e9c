package cli

import (
	"fmt"
	"strconv"
	"strings"
)

type Mode string

const (
	ModeNone    Mode = ""
	ModeCreate  Mode = "c"
	ModeExtract Mode = "x"
	ModeList    Mode = "t"
)

type CompressionHint string

const (
	CompressionAuto  CompressionHint = "auto"
	CompressionNone  CompressionHint = "none"
	CompressionGzip  CompressionHint = "gzip"
	CompressionBzip2 CompressionHint = "bzip2"
	CompressionXz    CompressionHint = "xz"
	CompressionZstd  CompressionHint = "zstd"
	CompressionLz4   CompressionHint = "lz4"
)

// Options is the parsed command line.
type Options struct {
	Mode             Mode
	Archive          string
	Suffix           string
	Verbose          bool
	Help             bool
	CompressionLevel *int
	StripComponents  int
	Chdir            string
	ToStdout         bool
	Compression      CompressionHint
	Exclude          []string
	ExcludeFrom      []string
	SameOwner        *bool
	SamePermissions  *bool
	BlockSize        int
	Digest           bool
	VerifyChecksum   bool
	Members          []string
}

// valueOptions are the long options that take an argument. They are also
// accepted with a single dash for compatibility with older scripts.
var valueOptions = map[string]func(*Options, string) error{
	"exclude": func(o *Options, v string) error {
		o.Exclude = append(o.Exclude, v)
		return nil
	},
	"exclude-from": func(o *Options, v string) error {
		o.ExcludeFrom = append(o.ExcludeFrom, v)
		return nil
	},
	"strip-components": func(o *Options, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("option --strip-components requires a non-negative integer")
		}
		o.StripComponents = n
		return nil
	},
	"compression-level": func(o *Options, v string) error {
		level, err := strconv.Atoi(v)
		if err != nil || level < 1 || level > 9 {
			return fmt.Errorf("option --compression-level requires an integer between 1 and 9")
		}
		o.CompressionLevel = &level
		return nil
	},
	"suffix": func(o *Options, v string) error {
		o.Suffix = v
		return nil
	},
	"block-size": func(o *Options, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("option --block-size requires a positive integer")
		}
		o.BlockSize = n
		return nil
	},
}

var flagOptions = map[string]func(*Options){
	"same-owner":          func(o *Options) { o.SameOwner = boolPtr(true) },
	"no-same-owner":       func(o *Options) { o.SameOwner = boolPtr(false) },
	"same-permissions":    func(o *Options) { o.SamePermissions = boolPtr(true) },
	"no-same-permissions": func(o *Options) { o.SamePermissions = boolPtr(false) },
	"zstd":                func(o *Options) { o.Compression = CompressionZstd },
	"lz4":                 func(o *Options) { o.Compression = CompressionLz4 },
	"digest":              func(o *Options) { o.Digest = true },
	"verify-checksum":     func(o *Options) { o.VerifyChecksum = true },
	"help":                func(o *Options) { o.Help = true },
}

// Parse reads tar-style arguments: bundled short flags (-cvf), a leading
// legacy token without a dash (cvf), and --long[=value] options.
func Parse(args []string) (Options, error) {
	opts := Options{Compression: CompressionAuto}
	if len(args) == 0 {
		return opts, fmt.Errorf("no operation mode specified")
	}

	if legacyToken(args[0]) {
		args = append([]string{"-" + args[0]}, args[1:]...)
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			opts.Members = append(opts.Members, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "-") || a == "-" {
			opts.Members = append(opts.Members, args[i:]...)
			break
		}

		long, isLong := strings.CutPrefix(a, "--")
		if !isLong {
			// single-dash spelling of a value option, e.g. -suffix=v
			if name, _, _ := strings.Cut(a[1:], "="); valueOptions[name] != nil {
				long, isLong = a[1:], true
			}
		}
		if isLong {
			name, value, hasValue := strings.Cut(long, "=")
			if set, ok := valueOptions[name]; ok {
				v, nextI, err := resolveValue(name, value, hasValue, args, i)
				if err != nil {
					return opts, err
				}
				i = nextI
				if err := set(&opts, v); err != nil {
					return opts, err
				}
				continue
			}
			if set, ok := flagOptions[name]; ok && !hasValue {
				set(&opts)
				continue
			}
			return opts, fmt.Errorf("unsupported option %s", a)
		}

		shorts := a[1:]
		for j := 0; j < len(shorts); j++ {
			s := shorts[j]
			switch s {
			case 'c':
				if err := setMode(&opts, ModeCreate); err != nil {
					return opts, err
				}
			case 'x':
				if err := setMode(&opts, ModeExtract); err != nil {
					return opts, err
				}
			case 't':
				if err := setMode(&opts, ModeList); err != nil {
					return opts, err
				}
			case 'v':
				opts.Verbose = true
			case 'h':
				opts.Help = true
			case 'O':
				opts.ToStdout = true
			case 'z':
				opts.Compression = CompressionGzip
			case 'j':
				opts.Compression = CompressionBzip2
			case 'J':
				opts.Compression = CompressionXz
			case 'f', 'C':
				var val string
				if j+1 < len(shorts) {
					val = shorts[j+1:]
				} else {
					i++
					if i >= len(args) {
						return opts, fmt.Errorf("option -%c requires an argument", s)
					}
					val = args[i]
				}
				if s == 'f' {
					opts.Archive = val
				} else {
					opts.Chdir = val
				}
				j = len(shorts)
			default:
				return opts, fmt.Errorf("unsupported option -%c", s)
			}
		}
	}

	if opts.Help {
		return opts, nil
	}
	if opts.Mode == ModeNone {
		return opts, fmt.Errorf("no operation mode specified")
	}
	if opts.Archive == "" {
		return opts, fmt.Errorf("option -f is required")
	}
	if opts.Mode == ModeCreate && len(opts.Members) == 0 {
		return opts, fmt.Errorf("cowardly refusing to create an empty archive")
	}
	if opts.Digest && opts.Mode != ModeCreate {
		return opts, fmt.Errorf("option --digest is only valid in create mode")
	}
	return opts, nil
}

func legacyToken(v string) bool {
	if strings.HasPrefix(v, "-") || v == "" {
		return false
	}
	for _, r := range v {
		switch r {
		case 'c', 'x', 't', 'v', 'f', 'C', 'z', 'j', 'J', 'O':
		default:
			return false
		}
	}
	return true
}

func setMode(opts *Options, mode Mode) error {
	if opts.Mode != ModeNone && opts.Mode != mode {
		return fmt.Errorf("multiple operation modes specified")
	}
	opts.Mode = mode
	return nil
}

func resolveValue(name, inline string, hasInline bool, args []string, i int) (string, int, error) {
	if hasInline {
		return inline, i, nil
	}
	i++
	if i >= len(args) {
		return "", i, fmt.Errorf("option --%s requires a value", name)
	}
	return args[i], i, nil
}

func boolPtr(b bool) *bool { return &b }
