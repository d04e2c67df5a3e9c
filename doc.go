// Package tarriball reads and writes UStar tar archives as streams.
//
// Archives are written from a list of entries (directories, in-memory
// buffers and host files) sorted by path, and read back one record at a
// time through a callback. File access goes through a hostfs.Host so the
// same code runs against the local disk or an in-memory filesystem:
//
//	svc := tarriball.New(hostfs.NewOS(hostfs.WithBase(dir)))
//	entries, err := svc.EntriesFromPaths("src")
//	if err != nil {
//		return err
//	}
//	return svc.WriteEntries(w, entries)
//
// Only the UStar header is supported: no PAX or GNU extensions, no links
// or device files on extraction, and no compression.
package tarriball
