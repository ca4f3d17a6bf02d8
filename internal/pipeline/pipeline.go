// Package pipeline walks frames through the four stages: arbitrated
// input, transposition, device encoding, sink output. A single
// goroutine owns the walk, so no stage needs locking.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledpipe/internal/device"
	"github.com/coreman2200/ledpipe/internal/geometry"
	"github.com/coreman2200/ledpipe/internal/input"
	"github.com/coreman2200/ledpipe/internal/pixel"
	"github.com/coreman2200/ledpipe/internal/sink"
)

// Pipeline pumps frames from the arbiter into the sink.
type Pipeline struct {
	arb    *input.Arbiter
	tr     *geometry.Transposer
	enc    device.Encoder
	out    sink.Sink
	single bool
	frames uint64
}

// Options tune the run loop.
type Options struct {
	// SingleFrame stops the loop after the first delivered frame.
	SingleFrame bool
}

// New assembles a pipeline. The caller keeps ownership of the arbiter
// and sink and closes them after Run returns.
func New(arb *input.Arbiter, tr *geometry.Transposer, enc device.Encoder, out sink.Sink, opts Options) *Pipeline {
	return &Pipeline{
		arb:    arb,
		tr:     tr,
		enc:    enc,
		out:    out,
		single: opts.SingleFrame,
	}
}

// Frames reports how many frames reached the sink.
func (p *Pipeline) Frames() uint64 { return p.frames }

// Run pumps frames until every input is exhausted, the context is
// cancelled, or a stage fails. Sink errors are terminal; a device that
// rejected one frame will reject the next one too. Idle ticks from a
// lingering arbiter deliver nothing downstream.
func (p *Pipeline) Run(ctx context.Context) error {
	p.arb.Start(ctx)
	log.Debug().Str("device", p.enc.Name()).Msg("pipeline running")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, rank, err := p.arb.Next(ctx)
		if err != nil {
			if errors.Is(err, input.ErrAllSourcesExhausted) {
				log.Info().Uint64("frames", p.frames).Msg("all inputs exhausted")
				return nil
			}
			return err
		}
		if frame == nil {
			continue
		}
		if err := p.deliver(frame, rank); err != nil {
			return err
		}
		p.frames++
		if p.single {
			log.Debug().Msg("single frame delivered, stopping")
			return nil
		}
	}
}

func (p *Pipeline) deliver(frame pixel.Frame, rank int) error {
	out, err := p.enc.Encode(p.tr.Transpose(frame))
	if err != nil {
		return fmt.Errorf("encode for %s: %w", p.enc.Name(), err)
	}
	if err := p.out.Write(out); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	log.Trace().Str("source", p.arb.SourceName(rank)).Uint64("frame", p.frames).Msg("frame delivered")
	return nil
}
