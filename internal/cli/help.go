package cli

import "fmt"

func HelpText(program string) string {
	if program == "" {
		program = "tarriball"
	}
	return fmt.Sprintf(`%s - UStar archiver with S3 support

Usage:
  %s -c -f <archive> [members...]
  %s -x -f <archive> [members...]
  %s -t -f <archive> [members...]
  %s [bundled flags] <archive> [members...]   (example: %s -cvf out.tar dir)

Modes:
  -c                Create archive
  -x                Extract archive
  -t                List archive contents

Main Options:
  -f <archive>      Archive path: local file, -, s3://bucket/key, or S3 ARN
  --suffix <value>  Add suffix to archive filename in create mode ("date" uses the 20060102 layout)
  -C <dir|s3://...> Change directory before create/extract
  --strip-components <count>
                    Remove <count> leading path elements when extracting
  --block-size <bytes>
                    Read size used when streaming member data (default 2048)
  --digest          Print the sha256 digest of the uncompressed archive after create
  --verify-checksum Reject header blocks with a bad checksum when reading
  -v                Verbose output
  -O                Extract regular file data to stdout
  -h, --help        Show this help message

Compression:
  -z                gzip
  -j                bzip2
  -J                xz
  --zstd            zstd
  --lz4             lz4
  --compression-level <1-9>
                    Compression level for create mode; omitted uses algorithm defaults
  (extract/list auto-detects by magic bytes, then file extension)

Ownership & Permissions:
  --same-owner
  --no-same-owner
  --same-permissions
  --no-same-permissions

Exclude:
  --exclude <pattern>    doublestar glob matched against member paths and their parents
  --exclude-from <file>
`, program, program, program, program, program, program)
}
