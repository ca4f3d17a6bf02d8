package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledpipe/internal/device"
	"github.com/coreman2200/ledpipe/internal/geometry"
	"github.com/coreman2200/ledpipe/internal/input"
	"github.com/coreman2200/ledpipe/internal/pipeline"
)

type byteSource struct {
	*bytes.Reader
	name string
}

func (s *byteSource) Close() error { return nil }
func (s *byteSource) Name() string { return s.name }

func src(data ...byte) input.Source {
	return &byteSource{Reader: bytes.NewReader(data), name: "fixed"}
}

type endlessSource struct{ b byte }

func (s *endlessSource) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = s.b
	}
	return len(p), nil
}
func (s *endlessSource) Close() error { return nil }
func (s *endlessSource) Name() string { return "endless" }

type pipeSource struct {
	r *io.PipeReader
}

func (s *pipeSource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *pipeSource) Close() error               { return s.r.Close() }
func (s *pipeSource) Name() string               { return "pipe" }

func newPipeSource() (input.Source, *io.PipeWriter) {
	r, w := io.Pipe()
	return &pipeSource{r: r}, w
}

type recordSink struct {
	mu   sync.Mutex
	outs []device.Output
	fail error
}

func (s *recordSink) Write(out device.Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.outs = append(s.outs, out)
	return nil
}

func (s *recordSink) Close() error { return nil }

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outs)
}

func (s *recordSink) streams() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for _, o := range s.outs {
		out = append(out, o.Stream)
	}
	return out
}

func build(t *testing.T, pixels int, sources []input.Source, rec *recordSink, opts pipeline.Options, mappings ...string) *pipeline.Pipeline {
	t.Helper()
	tr, err := geometry.NewTransposer(geometry.Strip(pixels), mappings...)
	require.NoError(t, err)
	arb := input.NewArbiter(sources, pixels*3, input.Options{})
	t.Cleanup(func() { arb.Close() })
	enc, err := device.NewRaw(pixels)
	require.NoError(t, err)
	return pipeline.New(arb, tr, enc, rec, opts)
}

func TestRunDeliversInOrder(t *testing.T) {
	rec := &recordSink{}
	p := build(t, 2, []input.Source{src(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)}, rec, pipeline.Options{})

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, [][]byte{{1, 2, 3, 4, 5, 6}, {7, 8, 9, 10, 11, 12}}, rec.streams())
	assert.Equal(t, uint64(2), p.Frames())
}

func TestRunTransposes(t *testing.T) {
	rec := &recordSink{}
	p := build(t, 3, []input.Source{src(1, 1, 1, 2, 2, 2, 3, 3, 3)}, rec, pipeline.Options{}, "reverse")

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, [][]byte{{3, 3, 3, 2, 2, 2, 1, 1, 1}}, rec.streams())
}

func TestRunSingleFrame(t *testing.T) {
	rec := &recordSink{}
	p := build(t, 1, []input.Source{&endlessSource{b: 0x42}}, rec, pipeline.Options{SingleFrame: true})

	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, uint64(1), p.Frames())
}

func TestRunCancelStops(t *testing.T) {
	rec := &recordSink{}
	p := build(t, 1, []input.Source{&endlessSource{b: 1}}, rec, pipeline.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return rec.count() > 0 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}

func TestRunSinkErrorIsTerminal(t *testing.T) {
	boom := errors.New("device detached")
	rec := &recordSink{fail: boom}
	p := build(t, 1, []input.Source{src(1, 2, 3, 4, 5, 6)}, rec, pipeline.Options{})

	err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunEncodeErrorIsTerminal(t *testing.T) {
	// A raw encoder sized for 2 pixels fed 1-pixel frames fails on the
	// first tick.
	rec := &recordSink{}
	tr, err := geometry.NewTransposer(geometry.Strip(1))
	require.NoError(t, err)
	arb := input.NewArbiter([]input.Source{src(9, 9, 9)}, 3, input.Options{})
	defer arb.Close()
	enc, err := device.NewRaw(2)
	require.NoError(t, err)
	p := pipeline.New(arb, tr, enc, rec, pipeline.Options{})

	assert.ErrorIs(t, p.Run(context.Background()), device.ErrGeometryMismatch)
}

func TestRunIdleTicksDeliverNothing(t *testing.T) {
	rec := &recordSink{}
	tr, err := geometry.NewTransposer(geometry.Strip(1))
	require.NoError(t, err)

	pr, pw := newPipeSource()
	arb := input.NewArbiter([]input.Source{pr}, 3, input.Options{Linger: true, Poll: time.Millisecond})
	defer arb.Close()
	enc, err := device.NewRaw(1)
	require.NoError(t, err)
	p := pipeline.New(arb, tr, enc, rec, pipeline.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	_, err = pw.Write([]byte{5, 6, 7})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, time.Millisecond)

	// Let the lingering arbiter spin through idle ticks for a while.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}
