package input

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

const testFrameSize = 6 // two pixels

func frameOf(b byte) []byte { return bytes.Repeat([]byte{b}, testFrameSize) }

type fixedSource struct {
	name string
	r    io.Reader
}

func (s *fixedSource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *fixedSource) Close() error               { return nil }
func (s *fixedSource) Name() string               { return s.name }

// pipeSource blocks until fed, like a FIFO with a quiet writer.
type pipeSource struct {
	name string
	r    *io.PipeReader
	w    *io.PipeWriter
}

func newPipeSource(name string) *pipeSource {
	r, w := io.Pipe()
	return &pipeSource{name: name, r: r, w: w}
}

func (s *pipeSource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *pipeSource) Close() error               { return s.r.Close() }
func (s *pipeSource) Name() string               { return s.name }

func (s *pipeSource) feed(t *testing.T, b []byte) {
	t.Helper()
	if _, err := s.w.Write(b); err != nil {
		t.Fatalf("feed %s: %v", s.name, err)
	}
}

// endless yields the same byte forever.
type endless struct {
	name string
	b    byte
}

func (s endless) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = s.b
	}
	return len(p), nil
}
func (s endless) Close() error { return nil }
func (s endless) Name() string { return s.name }

// refillSource reports end-of-stream whenever its buffer runs dry, like a
// file being appended to.
type refillSource struct {
	name string
	mu   sync.Mutex
	data []byte
}

func (s *refillSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.data)
	s.data = s.data[n:]
	return n, nil
}

func (s *refillSource) push(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, b...)
}

func (s *refillSource) Close() error { return nil }
func (s *refillSource) Name() string { return s.name }

func nextFrame(t *testing.T, ctx context.Context, a *Arbiter) (pixel.Frame, int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f, rank, err := a.Next(ctx)
		require.NoError(t, err)
		if f != nil {
			return f, rank
		}
	}
	t.Fatal("no frame before deadline")
	return nil, 0
}

func TestSingleSourceDeliversInOrder(t *testing.T) {
	data := append(frameOf(1), frameOf(2)...)
	src := &fixedSource{name: "a", r: bytes.NewReader(data)}
	a := NewArbiter([]Source{src}, testFrameSize, Options{})
	ctx := context.Background()
	a.Start(ctx)

	f, rank, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
	assert.Equal(t, frameOf(1), f.Bytes())

	f, _, err = a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, frameOf(2), f.Bytes())

	_, _, err = a.Next(ctx)
	assert.ErrorIs(t, err, ErrAllSourcesExhausted)
}

func TestTruncatedSourceNeverForwardsPartial(t *testing.T) {
	data := append(frameOf(1), 9, 9, 9)
	src := &fixedSource{name: "a", r: bytes.NewReader(data)}
	a := NewArbiter([]Source{src}, testFrameSize, Options{})
	ctx := context.Background()
	a.Start(ctx)

	f, _, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, frameOf(1), f.Bytes())

	_, _, err = a.Next(ctx)
	assert.ErrorIs(t, err, ErrAllSourcesExhausted)
	assert.ErrorIs(t, a.readers[0].err, ErrTruncated)
}

func TestCommittedModeBlocksOnPreferredSource(t *testing.T) {
	pref := newPipeSource("a")
	a := NewArbiter([]Source{pref, endless{name: "b", b: 7}}, testFrameSize, Options{})
	ctx := context.Background()
	a.Start(ctx)

	pref.feed(t, frameOf(1))
	f, rank, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
	assert.Equal(t, frameOf(1), f.Bytes())

	// the fallback source is ready, but the preferred one is merely
	// quiet, so the tick must stay blocked
	type tick struct {
		f    pixel.Frame
		rank int
		err  error
	}
	res := make(chan tick, 1)
	go func() {
		f, rank, err := a.Next(ctx)
		res <- tick{f, rank, err}
	}()
	select {
	case got := <-res:
		t.Fatalf("tick resolved while preferred source idle: rank %d err %v", got.rank, got.err)
	case <-time.After(50 * time.Millisecond):
	}

	pref.feed(t, frameOf(2))
	select {
	case got := <-res:
		require.NoError(t, got.err)
		assert.Equal(t, 0, got.rank)
		assert.Equal(t, frameOf(2), got.f.Bytes())
	case <-time.After(2 * time.Second):
		t.Fatal("tick never resolved after preferred source produced")
	}
}

func TestCommittedModeFallsThroughOnClose(t *testing.T) {
	one := &fixedSource{name: "a", r: bytes.NewReader(frameOf(1))}
	a := NewArbiter([]Source{one, endless{name: "b", b: 7}}, testFrameSize, Options{})
	ctx := context.Background()
	a.Start(ctx)

	f, rank, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, rank)
	assert.Equal(t, frameOf(1), f.Bytes())

	f, rank, err = a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
	assert.Equal(t, frameOf(7), f.Bytes())
}

func TestLingerFallsBackAndRecovers(t *testing.T) {
	pref := newPipeSource("a")
	a := NewArbiter([]Source{pref, endless{name: "b", b: 7}}, testFrameSize, Options{Linger: true, Poll: time.Millisecond})
	ctx := context.Background()
	a.Start(ctx)

	f, rank := nextFrame(t, ctx, a)
	assert.Equal(t, 1, rank)
	assert.Equal(t, frameOf(7), f.Bytes())

	pref.feed(t, frameOf(9))
	deadline := time.Now().Add(2 * time.Second)
	for {
		f, rank = nextFrame(t, ctx, a)
		if rank == 0 {
			assert.Equal(t, frameOf(9), f.Bytes())
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("preferred source never regained control")
		}
	}
}

func TestLingerIdlesInsteadOfBlocking(t *testing.T) {
	pref := newPipeSource("a")
	a := NewArbiter([]Source{pref}, testFrameSize, Options{Linger: true})
	// fire the poll timer immediately so the idle tick is deterministic
	a.after = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	ctx := context.Background()
	a.Start(ctx)

	f, rank, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, NoSource, rank)
	assert.Equal(t, NoSource, a.ActiveRank())
}

func TestActiveRankTracksProducer(t *testing.T) {
	pref := newPipeSource("a")
	a := NewArbiter([]Source{pref}, testFrameSize, Options{Linger: true})
	ctx := context.Background()
	a.Start(ctx)
	assert.Equal(t, NoSource, a.ActiveRank())

	pref.feed(t, frameOf(4))
	f, rank := nextFrame(t, ctx, a)
	assert.Equal(t, 0, rank)
	assert.Equal(t, frameOf(4), f.Bytes())
	assert.Equal(t, 0, a.ActiveRank())

	a.after = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	_, rank, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoSource, rank)
	assert.Equal(t, NoSource, a.ActiveRank())
}

func TestLingerParksOnEOFAndResumes(t *testing.T) {
	src := &refillSource{name: "a"}
	a := NewArbiter([]Source{src}, testFrameSize, Options{Linger: true, Poll: time.Millisecond})
	ctx := context.Background()
	a.Start(ctx)

	src.push(frameOf(3))
	f, _ := nextFrame(t, ctx, a)
	assert.Equal(t, frameOf(3), f.Bytes())

	// half a frame, a gap, then the rest: linger rides out the EOFs
	src.push([]byte{1, 2, 3})
	time.Sleep(5 * time.Millisecond)
	src.push([]byte{4, 5, 6})
	f, _ = nextFrame(t, ctx, a)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, f.Bytes())
}

func TestCancelUnblocksNext(t *testing.T) {
	pref := newPipeSource("a")
	a := NewArbiter([]Source{pref}, testFrameSize, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	res := make(chan error, 1)
	go func() {
		_, _, err := a.Next(ctx)
		res <- err
	}()
	cancel()
	select {
	case err := <-res:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not observe cancellation")
	}
}

func TestSourceNames(t *testing.T) {
	a := NewArbiter([]Source{endless{name: "x", b: 0}}, testFrameSize, Options{})
	assert.Equal(t, "x", a.SourceName(0))
	assert.Equal(t, "none", a.SourceName(NoSource))
	assert.Equal(t, "none", a.SourceName(5))
}
