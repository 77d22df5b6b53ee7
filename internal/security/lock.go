package security

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrLocked is returned by AcquireLock when another process holds the lock.
var ErrLocked = errors.New("security: lock held by another process")

// Lock is an exclusive advisory lock on a file. The file records the PID
// of the holder.
type Lock struct {
	file *os.File
}

// AcquireLock takes the lock at path without waiting. If another process
// holds it the error wraps ErrLocked and names that process when known.
func AcquireLock(path string) (*Lock, error) {
	cleanPath, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(cleanPath, os.O_RDWR|os.O_CREATE, PermSecretFile)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := tryLockFile(f); err != nil {
		holder := readPID(f)
		f.Close()
		if errors.Is(err, errWouldBlock) {
			if holder > 0 {
				return nil, fmt.Errorf("%w (pid %d)", ErrLocked, holder)
			}
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lock %s: %w", cleanPath, err)
	}
	if err := f.Truncate(0); err == nil {
		f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{file: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.file.Name()
}

// Release drops the lock. The file is left in place.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.file.Truncate(0)
	err := unlockFile(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

func readPID(f *os.File) int {
	buf := make([]byte, 32)
	n, _ := f.ReadAt(buf, 0)
	pid, err := strconv.Atoi(strings.TrimSpace(string(buf[:n])))
	if err != nil {
		return 0
	}
	return pid
}
