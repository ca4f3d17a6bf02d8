package input

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

// NoSource is the ActiveRank value while the arbiter idles.
const NoSource = -1

// DefaultPoll bounds how long a linger tick waits before idling and how
// often a parked reader re-probes its stream.
const DefaultPoll = 5 * time.Millisecond

// Options tune arbitration.
type Options struct {
	// Linger keeps the pipeline live when the preferred source goes
	// quiet: idle ticks instead of blocking, and end-of-stream parks a
	// source instead of removing it.
	Linger bool
	// Poll overrides DefaultPoll.
	Poll time.Duration
}

// Arbiter owns the ranked readers and picks the frame for each tick.
// Rank is declaration order; lower rank wins whenever it has data.
//
// Without linger the arbiter commits to the best-ranked open source and
// blocks until it delivers, matching plain single-source reads. With
// linger it probes every open source, best rank first, and gives up the
// tick after the poll interval so silence upstream never freezes the
// show.
type Arbiter struct {
	readers []*Reader
	removed []bool
	linger  bool
	poll    time.Duration
	wake    chan struct{}
	active  int

	after func(time.Duration) <-chan time.Time
}

// NewArbiter wires one reader per source, in priority order.
func NewArbiter(sources []Source, frameSize int, opts Options) *Arbiter {
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	a := &Arbiter{
		removed: make([]bool, len(sources)),
		linger:  opts.Linger,
		poll:    poll,
		wake:    make(chan struct{}, 1),
		active:  NoSource,
		after:   time.After,
	}
	for i, src := range sources {
		a.readers = append(a.readers, &Reader{
			src:       src,
			rank:      i,
			frameSize: frameSize,
			linger:    opts.Linger,
			poll:      poll,
			wake:      a.wake,
			taken:     make(chan struct{}, 1),
		})
	}
	return a
}

// Start launches the reader goroutines. They stop when ctx ends or their
// source closes.
func (a *Arbiter) Start(ctx context.Context) {
	for _, r := range a.readers {
		go r.run(ctx)
	}
}

// Next blocks until it has a frame, an idle linger tick (nil frame, nil
// error), or the rotation is empty (ErrAllSourcesExhausted). The int is
// the producing source's rank, NoSource for idle ticks.
func (a *Arbiter) Next(ctx context.Context) (pixel.Frame, int, error) {
	for {
		if !a.linger {
			// Committed mode: only the best-ranked open source may
			// produce; its silence is backpressure, not an error.
			r := a.topOpen()
			if r == nil {
				return nil, NoSource, ErrAllSourcesExhausted
			}
			f, ok, err := r.tryTake()
			if err != nil {
				a.remove(r, err)
				continue
			}
			if ok {
				a.active = r.rank
				return f, r.rank, nil
			}
			select {
			case <-ctx.Done():
				return nil, NoSource, ctx.Err()
			case <-a.wake:
			}
			continue
		}

		open := 0
		for _, r := range a.readers {
			if a.removed[r.rank] {
				continue
			}
			f, ok, err := r.tryTake()
			if err != nil {
				a.remove(r, err)
				continue
			}
			open++
			if ok {
				a.active = r.rank
				return f, r.rank, nil
			}
		}
		if open == 0 {
			return nil, NoSource, ErrAllSourcesExhausted
		}
		select {
		case <-ctx.Done():
			return nil, NoSource, ctx.Err()
		case <-a.wake:
		case <-a.after(a.poll):
			a.active = NoSource
			return nil, NoSource, nil
		}
	}
}

func (a *Arbiter) topOpen() *Reader {
	for _, r := range a.readers {
		if !a.removed[r.rank] {
			return r
		}
	}
	return nil
}

// ActiveRank reports the most recent tick outcome: the rank of the last
// producing source, or NoSource after an idle tick.
func (a *Arbiter) ActiveRank() int { return a.active }

// SourceName names a rank for logs.
func (a *Arbiter) SourceName(rank int) string {
	if rank < 0 || rank >= len(a.readers) {
		return "none"
	}
	return a.readers[rank].Name()
}

func (a *Arbiter) remove(r *Reader, err error) {
	a.removed[r.rank] = true
	if errors.Is(err, context.Canceled) {
		log.Debug().Str("source", r.Name()).Msg("input reader stopped")
		return
	}
	log.Warn().Str("source", r.Name()).Err(err).Msg("input source removed from rotation")
}

// Close closes every source, unblocking readers still stuck mid-read.
// Reader goroutines close their own source again on exit; that second
// close is harmless.
func (a *Arbiter) Close() error {
	var first error
	for _, r := range a.readers {
		if err := r.src.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
