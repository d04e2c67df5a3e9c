package tarriball

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path"
	"testing"
	"time"

	"github.com/islishude/tarriball/hostfs"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// recordingHost wraps the in-memory host and records Chmod calls instead of
// applying them. chmodErr is returned from Chmod when set.
type recordingHost struct {
	*hostfs.Billy
	modes    map[string]int64
	chmodErr error
}

func newRecordingHost() *recordingHost {
	return &recordingHost{Billy: hostfs.NewMemory(), modes: map[string]int64{}}
}

func (h *recordingHost) Chmod(p string, mode int64) error {
	if h.chmodErr != nil {
		return h.chmodErr
	}
	h.modes[p] = mode
	return nil
}

func newTestService(host hostfs.Host, opts ...Option) *Service {
	base := []Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(func() time.Time { return fixedTime }),
	}
	return New(host, append(base, opts...)...)
}

func writeMemFile(t *testing.T, host *recordingHost, name, content string) {
	t.Helper()
	if err := host.MkdirAll(path.Dir(name)); err != nil {
		t.Fatalf("mkdir %s: %v", path.Dir(name), err)
	}
	w, err := host.Create(name)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close %s: %v", name, err)
	}
}

func readMemFile(t *testing.T, host *recordingHost, name string) string {
	t.Helper()
	rc, err := host.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func mustArchive(t *testing.T, svc *Service, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := svc.WriteEntries(&buf, entries); err != nil {
		t.Fatalf("WriteEntries() error = %v", err)
	}
	return buf.Bytes()
}

// pipeReader hides the Seek method of the underlying reader and counts reads.
type pipeReader struct {
	r     io.Reader
	reads int
}

func (p *pipeReader) Read(b []byte) (int, error) {
	p.reads++
	return p.r.Read(b)
}

// brokenSeeker reports every Seek as failed, like stdin attached to a pipe.
type brokenSeeker struct {
	io.Reader
	seeks int
}

func (b *brokenSeeker) Seek(int64, int) (int64, error) {
	b.seeks++
	return 0, errors.New("illegal seek")
}
