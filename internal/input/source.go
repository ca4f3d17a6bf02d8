// Package input turns byte sources into ranked frame streams and
// arbitrates which source feeds each pipeline tick.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

var (
	// ErrSourceClosed marks a source that hit end-of-stream between
	// frames and cannot produce again.
	ErrSourceClosed = errors.New("input source closed")
	// ErrTruncated marks a source that died mid-frame. The partial frame
	// is discarded, never forwarded.
	ErrTruncated = errors.New("input truncated mid-frame")
	// ErrAllSourcesExhausted ends the pipeline once no source remains in
	// the rotation.
	ErrAllSourcesExhausted = errors.New("all input sources exhausted")
)

// Source is one raw byte stream. Read blocks like any io.Reader and is
// only ever called from the source's reader goroutine; Close may be
// called from elsewhere to unblock a pending Read.
type Source interface {
	io.ReadCloser
	Name() string
}

// Open resolves an input spec to a source. "-" is stdin, "tcp://addr"
// accepts stream clients, "ws://addr" serves websocket producers,
// "pattern:name" generates frames without a producer, anything else is a
// path to a regular file or FIFO.
func Open(spec string, frameSize int) (Source, error) {
	switch {
	case spec == "-":
		return stdinSource{}, nil
	case strings.HasPrefix(spec, "tcp://"):
		return listenTCP(strings.TrimPrefix(spec, "tcp://"), frameSize)
	case strings.HasPrefix(spec, "ws://"):
		return listenWS(strings.TrimPrefix(spec, "ws://"), frameSize)
	case strings.HasPrefix(spec, "pattern:"):
		return newPattern(strings.TrimPrefix(spec, "pattern:"), frameSize)
	default:
		st, err := os.Stat(spec)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", spec, err)
		}
		return &fileSource{path: spec, fifo: st.Mode()&os.ModeNamedPipe != 0}, nil
	}
}

type stdinSource struct{}

func (stdinSource) Read(p []byte) (int, error) { return os.Stdin.Read(p) }
func (stdinSource) Close() error               { return os.Stdin.Close() }
func (stdinSource) Name() string               { return "stdin" }

// fileSource defers os.Open until the first read so a FIFO without a
// writer blocks its own reader goroutine instead of process startup.
type fileSource struct {
	path string
	fifo bool

	mu     sync.Mutex
	f      *os.File
	closed bool
}

func (s *fileSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, os.ErrClosed
	}
	f := s.f
	s.mu.Unlock()

	if f == nil {
		opened, err := os.Open(s.path)
		if err != nil {
			return 0, err
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			opened.Close()
			return 0, os.ErrClosed
		}
		s.f = opened
		s.mu.Unlock()
		f = opened
	}
	return f.Read(p)
}

func (s *fileSource) Close() error {
	s.mu.Lock()
	s.closed = true
	f := s.f
	s.mu.Unlock()
	if f != nil {
		return f.Close()
	}
	if s.fifo {
		releaseFIFO(s.path)
	}
	return nil
}

func (s *fileSource) Name() string { return s.path }
