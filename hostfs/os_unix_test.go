//go:build unix

package hostfs

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOSWalkWithBase(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "src", "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "src", "sub", "b.txt"), []byte("bb"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "src", "a.txt"), []byte("a"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("a.txt", filepath.Join(base, "src", "link")); err != nil {
		t.Fatal(err)
	}

	h := NewOS(WithBase(base))
	var got []FileInfo
	if err := h.Walk("src", func(fi FileInfo) error {
		got = append(got, fi)
		return nil
	}); err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	wantPaths := []string{"src", "src/a.txt", "src/link", "src/sub", "src/sub/b.txt"}
	if len(got) != len(wantPaths) {
		t.Fatalf("walk len = %d, want %d (%+v)", len(got), len(wantPaths), got)
	}
	for i, fi := range got {
		if fi.Path != wantPaths[i] {
			t.Fatalf("walk[%d] = %q, want %q", i, fi.Path, wantPaths[i])
		}
	}
	if !got[0].Dir || got[0].Regular {
		t.Fatalf("src should be a directory: %+v", got[0])
	}
	if got[1].Mode != 0o600 || got[1].Size != 1 || !got[1].Regular {
		t.Fatalf("unexpected a.txt info: %+v", got[1])
	}
	if got[2].Regular || got[2].Dir {
		t.Fatalf("symlink should be neither regular nor dir: %+v", got[2])
	}
	if got[4].UID != os.Getuid() || got[4].GID != os.Getgid() {
		t.Fatalf("owner = %d/%d, want %d/%d", got[4].UID, got[4].GID, os.Getuid(), os.Getgid())
	}
}

func TestOSCreateChmodMkdir(t *testing.T) {
	base := t.TempDir()
	h := NewOS(WithBase(base))
	if err := h.MkdirAll("x/y"); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := h.MkdirAll("x/y"); err != nil {
		t.Fatalf("MkdirAll() should be idempotent, error = %v", err)
	}
	w, err := h.Create("x/y/f")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := io.WriteString(w, "data"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := h.Chmod("x/y/f", 0o751); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}
	st, err := os.Stat(filepath.Join(base, "x", "y", "f"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o751 {
		t.Fatalf("mode = %o, want 751", st.Mode().Perm())
	}
	if err := h.Chmod("missing", 0o644); err == nil {
		t.Fatalf("expected chmod error for missing path")
	}
}
