package tarriball

import (
	"io"

	"github.com/islishude/tarriball/hostfs"
)

func defaultService() *Service {
	return New(hostfs.NewOS())
}

// WriteEntries writes entries to w using the local filesystem for file
// entries.
func WriteEntries(w io.Writer, entries []Entry) error {
	return defaultService().WriteEntries(w, entries)
}

// EachRecord iterates the archive in r. See Service.EachRecord.
func EachRecord(r io.Reader, fn func(*Record) error) error {
	return defaultService().EachRecord(r, fn)
}

// ExtractAll extracts the archive in r below base on the local filesystem.
func ExtractAll(r io.Reader, base string) error {
	return defaultService().ExtractAll(r, base)
}

// EntriesFromPaths walks the local filesystem. See Service.EntriesFromPaths.
func EntriesFromPaths(roots ...string) ([]Entry, error) {
	return defaultService().EntriesFromPaths(roots...)
}

// ConvertPath converts between archive and local path separators.
func ConvertPath(path string) string {
	return defaultService().ConvertPath(path)
}
