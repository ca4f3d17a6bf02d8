//go:build unix

package input

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestFileSourceCloseReleasesParkedFIFOOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.fifo")
	require.NoError(t, unix.Mkfifo(path, 0o600))

	src, err := Open(path, testFrameSize)
	require.NoError(t, err)

	// With no writer attached the first read parks inside the open.
	read := make(chan error, 1)
	go func() {
		_, err := src.Read(make([]byte, testFrameSize))
		read <- err
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, src.Close())

	select {
	case err := <-read:
		assert.ErrorIs(t, err, os.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("read still parked after close")
	}
}

func TestFIFOSourceStreamsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.fifo")
	require.NoError(t, unix.Mkfifo(path, 0o600))

	src, err := Open(path, testFrameSize)
	require.NoError(t, err)
	defer src.Close()

	go func() {
		w, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return
		}
		defer w.Close()
		w.Write(frameOf(3))
	}()

	assert.Equal(t, frameOf(3), readFrame(t, src, testFrameSize))
}
