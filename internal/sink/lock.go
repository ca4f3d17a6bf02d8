package sink

import (
	"fmt"

	"github.com/gofrs/flock"
)

// lockDevice takes a non-blocking flock on the device node so two
// pipelines cannot interleave frames on the same strip. The returned
// release func drops the lock.
func lockDevice(path string) (func(), error) {
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s is held by another process", path)
	}
	return func() { _ = l.Unlock() }, nil
}
