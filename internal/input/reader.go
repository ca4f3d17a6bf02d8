package input

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

// Reader assembles fixed-size frames from one source on its own
// goroutine and stages them one at a time for the arbiter. At most one
// frame is ever staged; the goroutine does not read ahead further until
// the staged frame is taken.
type Reader struct {
	src       Source
	rank      int
	frameSize int
	linger    bool
	poll      time.Duration
	wake      chan<- struct{}

	mu     sync.Mutex
	staged pixel.Frame
	err    error

	taken chan struct{}
}

func (r *Reader) run(ctx context.Context) {
	defer r.src.Close()
	for {
		f, err := r.assemble(ctx)
		if err != nil {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
			r.poke()
			return
		}
		r.mu.Lock()
		r.staged = f
		r.mu.Unlock()
		r.poke()
		select {
		case <-r.taken:
		case <-ctx.Done():
			return
		}
	}
}

// assemble blocks until a whole frame is read. End-of-stream between
// frames is terminal without linger and a parked retry with it; linger
// also rides out end-of-stream mid-frame, so a FIFO writer can come and
// go between or even within frames.
func (r *Reader) assemble(ctx context.Context) (pixel.Frame, error) {
	buf := make([]byte, r.frameSize)
	got := 0
	for got < len(buf) {
		n, err := r.src.Read(buf[got:])
		got += n
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if r.linger {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(r.poll):
				}
				continue
			}
			if got == 0 {
				return nil, fmt.Errorf("%s: %w", r.src.Name(), ErrSourceClosed)
			}
			if got < len(buf) {
				return nil, fmt.Errorf("%s after %d of %d bytes: %w", r.src.Name(), got, len(buf), ErrTruncated)
			}
			break
		}
		return nil, fmt.Errorf("read %s: %w", r.src.Name(), err)
	}
	return pixel.FromBytes(buf), nil
}

// tryTake hands out the staged frame, or the terminal error once the
// goroutine has stopped. ok=false with a nil error means the reader is
// open but has nothing staged yet.
func (r *Reader) tryTake() (pixel.Frame, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staged != nil {
		f := r.staged
		r.staged = nil
		select {
		case r.taken <- struct{}{}:
		default:
		}
		return f, true, nil
	}
	return nil, false, r.err
}

func (r *Reader) poke() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Name identifies the underlying source in logs.
func (r *Reader) Name() string { return r.src.Name() }
