package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrLocked means another process already holds the lock.
var ErrLocked = errors.New("lock: already held by another process")

// Lock is an exclusive advisory lock on a file.
type Lock struct {
	f *os.File
}

// Acquire takes the lock at path without waiting. The file is created if
// needed and left in place on release.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lock: could not open %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("lock: flock %s: %w", path, err)
	}
	return &Lock{f: f}, nil
}

func (l *Lock) Path() string {
	return l.f.Name()
}

func (l *Lock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("lock: unlock %s: %w", l.f.Name(), err)
	}
	return l.f.Close()
}

// GasPath is the lock file of the gas sensor at addr.
func GasPath(dir string, addr byte) string {
	return filepath.Join(dir, fmt.Sprintf("tvoc.%#x.lock", addr))
}

// ParticulatePath is the lock file of the particulate sensor.
func ParticulatePath(dir string) string {
	return filepath.Join(dir, "pm25.lock")
}
