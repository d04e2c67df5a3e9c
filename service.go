package tarriball

import (
	"log/slog"
	"time"

	"github.com/islishude/tarriball/hostfs"
)

// Service reads and writes UStar archives against one host filesystem.
type Service struct {
	host           hostfs.Host
	logger         *slog.Logger
	clock          func() time.Time
	chunkSize      int
	verifyChecksum bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for per-entry debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source for entries without a modification time.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithChunkSize sets the read size used for extraction, draining and the
// file entries produced by EntriesFromPaths.
func WithChunkSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithVerifyChecksum makes the reader reject header blocks whose stored
// checksum does not match.
func WithVerifyChecksum(verify bool) Option {
	return func(s *Service) {
		s.verifyChecksum = verify
	}
}

// New returns a Service bound to host.
func New(host hostfs.Host, opts ...Option) *Service {
	s := &Service{
		host:      host,
		logger:    slog.Default(),
		clock:     time.Now,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Host returns the filesystem the service reads from and extracts into.
func (s *Service) Host() hostfs.Host { return s.host }

// ConvertPath converts between archive and host path separators.
func (s *Service) ConvertPath(path string) string {
	return hostfs.ConvertPath(path, s.host.Separator())
}
