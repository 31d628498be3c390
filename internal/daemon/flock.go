package daemon

import (
	"errors"
	"os"
)

// ErrLocked is returned by TryLock when another process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// FileLock is an exclusive advisory lock on a file. The OS drops it when
// the holding process exits, even on SIGKILL.
type FileLock struct {
	path string
	file *os.File
}

// Path returns the lock file's path.
func (l *FileLock) Path() string {
	return l.path
}
