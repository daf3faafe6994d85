package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

const lockRetryInterval = 100 * time.Millisecond

// ErrLocked is returned when another process holds the lock until ctx ends.
var ErrLocked = errors.New("another instance holds the lock")

// Lock is an exclusive flock held for the lifetime of one run, so two
// invocations never interleave their documents.
type Lock struct {
	path string
	fd   int
}

// AcquireLock takes the exclusive lock on path, waiting until ctx is done.
func AcquireLock(ctx context.Context, path string) (*Lock, error) {
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &Lock{path: path, fd: fd}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			unix.Close(fd)
			return nil, fmt.Errorf("lock error: %w", err)
		}

		select {
		case <-ctx.Done():
			unix.Close(fd)
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		case <-time.After(lockRetryInterval):
		}
	}
}

// Release drops the lock. The lock file itself stays in place.
func (l *Lock) Release() error {
	if l == nil || l.fd < 0 {
		return nil
	}
	unix.Flock(l.fd, unix.LOCK_UN)
	err := unix.Close(l.fd)
	l.fd = -1
	return err
}
