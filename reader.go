package tarriball

import (
	"errors"
	"fmt"
	"io"
)

// EachRecord calls fn for every member of the archive in r. The record is
// closed after fn returns, so fn may read as much or as little of it as it
// likes. Reading stops at the second consecutive blank block, at a clean end
// of input on a block boundary, or at the first error returned by fn.
func (s *Service) EachRecord(r io.Reader, fn func(*Record) error) error {
	src := &stream{r: r, size: -1}
	block := make([]byte, BlockSize)
	blanks := 0
	for {
		if _, err := io.ReadFull(src, block); err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.logger.Debug("archive ended without terminator")
				return nil
			case errors.Is(err, io.ErrUnexpectedEOF):
				return &FormatError{Reason: "archive ended inside a header block"}
			default:
				return fmt.Errorf("read header: %w", err)
			}
		}

		if isBlank(block) {
			blanks++
			if blanks > 1 {
				return nil
			}
			continue
		}
		blanks = 0

		if s.verifyChecksum && !VerifyChecksum(block) {
			return &FormatError{Reason: "header checksum mismatch"}
		}
		hdr, err := ParseHeader(block)
		if err != nil {
			return err
		}
		s.logger.Debug("record", "path", hdr.Path, "type", string(hdr.Type()), "size", hdr.Size)

		rec := &Record{hdr: hdr, src: src, host: s.host, chunkSize: s.chunkSize}
		if err := fn(rec); err != nil {
			return err
		}
		if err := rec.Close(); err != nil {
			return fmt.Errorf("skip %s: %w", hdr.Path, err)
		}
	}
}

// ExtractAll extracts every directory and regular file of the archive in r
// below base. Other member types are skipped.
func (s *Service) ExtractAll(r io.Reader, base string) error {
	return s.EachRecord(r, func(rec *Record) error {
		if !rec.IsDir() && !rec.IsFile() {
			s.logger.Debug("skip", "path", rec.Path(), "type", string(rec.Type()))
			return nil
		}
		return rec.ExtractInto(base, s.chunkSize)
	})
}
