package tarriball

import (
	"fmt"
	"slices"
	"strings"

	"github.com/islishude/tarriball/hostfs"
)

// EntriesFromPaths walks every root on the host and returns a directory
// entry for each directory and a file entry for each regular file, sorted
// by archive path. Other file types are skipped. Archive paths use '/' and
// have leading slashes removed.
func (s *Service) EntriesFromPaths(roots ...string) ([]Entry, error) {
	var entries []Entry
	for _, root := range roots {
		err := s.host.Walk(root, func(fi hostfs.FileInfo) error {
			name := strings.TrimLeft(s.ConvertPath(fi.Path), "/")
			if name == "" {
				return nil
			}
			info := EntryInfo{
				Path:    name,
				Mode:    DecodeMode(fi.Mode),
				UID:     fi.UID,
				GID:     fi.GID,
				ModTime: fi.ModTime,
			}
			switch {
			case fi.Dir:
				entries = append(entries, DirectoryEntry{EntryInfo: info})
			case fi.Regular:
				entries = append(entries, FileEntry{EntryInfo: info, Source: fi.Path, ChunkSize: s.chunkSize})
			default:
				s.logger.Debug("skip", "path", fi.Path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Info().Path, b.Info().Path)
	})
	return entries, nil
}
