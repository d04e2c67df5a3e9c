//go:build unix

package engine

import (
	"sync"

	"golang.org/x/sys/unix"
)

var umaskMu sync.Mutex

func currentUmask() int64 {
	umaskMu.Lock()
	defer umaskMu.Unlock()
	old := unix.Umask(0)
	unix.Umask(old)
	return int64(old)
}
