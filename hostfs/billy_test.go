package hostfs

import (
	"errors"
	"io"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
)

func writeMemFile(t *testing.T, h *Billy, name, content string) {
	t.Helper()
	w, err := h.Create(name)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatalf("write %q: %v", name, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close %q: %v", name, err)
	}
}

func TestBillyWalkOrder(t *testing.T) {
	h := NewMemory()
	if err := h.MkdirAll("root/b"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := h.MkdirAll("root/a"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	writeMemFile(t, h, "root/b/file.txt", "hello")
	writeMemFile(t, h, "root/a.txt", "x")

	var got []string
	err := h.Walk("root", func(fi FileInfo) error {
		got = append(got, fi.Path)
		if fi.Path == "root/b/file.txt" {
			if !fi.Regular || fi.Dir || fi.Size != 5 {
				t.Fatalf("unexpected file info: %+v", fi)
			}
		}
		if fi.Path == "root/b" && !fi.Dir {
			t.Fatalf("root/b should be a directory")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{"root", "root/a", "root/a.txt", "root/b", "root/b/file.txt"}
	if len(got) != len(want) {
		t.Fatalf("walk = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("walk = %v, want %v", got, want)
		}
	}
}

func TestBillyWalkStopsOnError(t *testing.T) {
	h := NewMemory()
	writeMemFile(t, h, "dir/one", "1")
	writeMemFile(t, h, "dir/two", "2")
	stop := errors.New("stop")
	calls := 0
	err := h.Walk("dir", func(FileInfo) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Walk() error = %v, want %v", err, stop)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestBillyCreateOpen(t *testing.T) {
	h := NewMemory()
	writeMemFile(t, h, "f.bin", "payload")
	fi, err := h.Stat("f.bin")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if fi.Size != 7 {
		t.Fatalf("size = %d, want 7", fi.Size)
	}
	r, err := h.Open("f.bin")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(b) != "payload" {
		t.Fatalf("content = %q", string(b))
	}
}

// plainFS hides every optional interface of the wrapped filesystem.
type plainFS struct{ billy.Filesystem }

func TestBillyChmodUnsupported(t *testing.T) {
	h := NewBilly(plainFS{memfs.New()})
	writeMemFile(t, h, "f", "")
	err := h.Chmod("f", 0o600)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Chmod() error = %v, want ErrUnsupported", err)
	}
}

func TestBillySeparator(t *testing.T) {
	if NewMemory().Separator() != '/' {
		t.Fatalf("billy hosts always use '/'")
	}
}
