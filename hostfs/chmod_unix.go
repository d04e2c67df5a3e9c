//go:build unix

package hostfs

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"
)

func chmod(path string, mode int64) error {
	if err := unix.Chmod(path, uint32(mode&0o7777)); err != nil {
		return &fs.PathError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}

func owner(st fs.FileInfo) (uid, gid int) {
	if sys, ok := st.Sys().(*syscall.Stat_t); ok {
		return int(sys.Uid), int(sys.Gid)
	}
	return 0, 0
}
