package input

import (
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenResolvesSpecs(t *testing.T) {
	s, err := Open("-", testFrameSize)
	require.NoError(t, err)
	assert.Equal(t, "stdin", s.Name())

	s, err = Open("pattern:sweep", testFrameSize)
	require.NoError(t, err)
	assert.Equal(t, "pattern:sweep", s.Name())

	_, err = Open("pattern:nope", testFrameSize)
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing"), testFrameSize)
	assert.Error(t, err)
}

func TestSourcesSurviveDoubleClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.bin")
	require.NoError(t, os.WriteFile(path, frameOf(1), 0o644))

	specs := []string{
		path,
		"pattern:white",
		"tcp://127.0.0.1:0",
		"ws://127.0.0.1:0",
	}
	for _, spec := range specs {
		src, err := Open(spec, testFrameSize)
		require.NoError(t, err, spec)
		require.NoError(t, src.Close(), spec)
		// The arbiter closes sources to unblock readers, then each
		// reader closes its own source again on the way out.
		assert.NotPanics(t, func() { _ = src.Close() }, spec)
	}
}

func readFrame(t *testing.T, s Source, size int) []byte {
	t.Helper()
	buf := make([]byte, size)
	_, err := io.ReadFull(s, buf)
	require.NoError(t, err)
	return buf
}

func TestSweepPatternWalksTheStrip(t *testing.T) {
	s, err := newPattern("sweep", 9)
	require.NoError(t, err)

	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0, 0, 0, 0, 0, 0}, readFrame(t, s, 9))
	assert.Equal(t, []byte{0, 0, 0, 0xFF, 0xFF, 0xFF, 0, 0, 0}, readFrame(t, s, 9))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0xFF, 0xFF, 0xFF}, readFrame(t, s, 9))
	// wraps around
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0, 0, 0, 0, 0, 0}, readFrame(t, s, 9))
}

func TestRGBPatternCyclesChannels(t *testing.T) {
	s, err := newPattern("rgb", testFrameSize)
	require.NoError(t, err)

	assert.Equal(t, []byte{0xFF, 0, 0, 0xFF, 0, 0}, readFrame(t, s, testFrameSize))
	assert.Equal(t, []byte{0, 0xFF, 0, 0, 0xFF, 0}, readFrame(t, s, testFrameSize))
	assert.Equal(t, []byte{0, 0, 0xFF, 0, 0, 0xFF}, readFrame(t, s, testFrameSize))
}

func TestWhitePattern(t *testing.T) {
	s, err := newPattern("white", testFrameSize)
	require.NoError(t, err)
	assert.Equal(t, frameOf(0xFF), readFrame(t, s, testFrameSize))
}

func TestTCPSourceDropsPartialFramesBetweenClients(t *testing.T) {
	src, err := listenTCP("127.0.0.1:0", testFrameSize)
	require.NoError(t, err)
	defer src.Close()
	addr := src.Addr().String()

	c1, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = c1.Write(append(frameOf(1), 9, 9, 9))
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	_, err = c2.Write(frameOf(2))
	require.NoError(t, err)
	defer c2.Close()

	assert.Equal(t, frameOf(1), readFrame(t, src, testFrameSize))
	assert.Equal(t, frameOf(2), readFrame(t, src, testFrameSize))
}

func TestWSSourceDeliversWholeFrameMessages(t *testing.T) {
	src, err := listenWS("127.0.0.1:0", testFrameSize)
	require.NoError(t, err)
	defer src.Close()

	url := "ws://" + src.Addr().String() + "/"
	var conn *websocket.Conn
	require.Eventually(t, func() bool {
		var err error
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frameOf(5)))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2})) // dropped
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, frameOf(6)))

	assert.Equal(t, frameOf(5), readFrame(t, src, testFrameSize))
	assert.Equal(t, frameOf(6), readFrame(t, src, testFrameSize))
}
