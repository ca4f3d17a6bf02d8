package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/ledpipe/internal/config"
	"github.com/coreman2200/ledpipe/internal/device"
	"github.com/coreman2200/ledpipe/internal/geometry"
	"github.com/coreman2200/ledpipe/internal/input"
	"github.com/coreman2200/ledpipe/internal/pipeline"
	"github.com/coreman2200/ledpipe/internal/pixel"
	"github.com/coreman2200/ledpipe/internal/sink"
)

// runConfig merges flags with the profile, if any, into the effective
// run configuration.
func (c *commandContext) runConfig(cmd *cobra.Command) (config.Run, error) {
	var profile *config.Profile
	if c.profilePath != "" {
		p, err := config.LoadProfile(c.profilePath)
		if err != nil {
			return config.Run{}, fmt.Errorf("load profile: %w", err)
		}
		profile = p
		log.Debug().Str("path", c.profilePath).Msg("profile loaded")
	}
	set := func(name string) bool {
		f := cmd.Flag(name)
		return f != nil && f.Changed
	}
	rc, err := config.Build(c.flags, profile, set)
	if err != nil {
		return config.Run{}, err
	}
	if rc.LogLevel != c.flags.LogLevel {
		if err := setupLogging(rc.LogLevel); err != nil {
			return config.Run{}, err
		}
	}
	return rc, nil
}

// sinkTuning carries the per-device knobs the sink needs: ws2811-class
// encoders want NRZ bit stretching on SPI, the raw device exposes the
// SPI mode bits.
type sinkTuning struct {
	nrz      bool
	spiMode  uint8
	lsbFirst bool
}

func (c *commandContext) runDevice(cmd *cobra.Command, rc config.Run, enc device.Encoder, tune sinkTuning) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := openSink(ctx, rc, tune)
	if err != nil {
		return err
	}
	return runWith(ctx, rc, enc, out)
}

func openSink(ctx context.Context, rc config.Run, tune sinkTuning) (sink.Sink, error) {
	stdout := rc.Output == "" || rc.Output == "-"
	if stdout && rc.Driver != sink.DriverTerm && !rc.ForceTTY && isatty.IsTerminal(os.Stdout.Fd()) {
		return nil, fmt.Errorf("stdout is a terminal; redirect it, pass --driver term for a preview, or --force-tty to dump bytes anyway")
	}
	return sink.Open(ctx, sink.Config{
		Path:          rc.Output,
		Driver:        rc.Driver,
		SPIClockHz:    rc.SPIClockHz,
		SPIMode:       tune.spiMode,
		SPILSBFirst:   tune.lsbFirst,
		NRZ:           tune.nrz,
		Pixels:        rc.Dims.Size(),
		SerialBaud:    rc.SerialBaud,
		Dims:          rc.Dims,
		Lock:          rc.Lock,
		WaitForDevice: rc.WaitOutput,
	})
}

// runWith assembles the pipeline around an already open sink and runs
// it until the inputs dry up or the context is cancelled.
func runWith(ctx context.Context, rc config.Run, enc device.Encoder, out sink.Sink) error {
	defer out.Close()

	tr, err := geometry.NewTransposer(rc.Dims, rc.Transpose...)
	if err != nil {
		return err
	}

	frameSize := rc.Dims.Size() * pixel.BytesPerPixel
	sources := make([]input.Source, 0, len(rc.Inputs))
	for _, spec := range rc.Inputs {
		src, err := input.Open(spec, frameSize)
		if err != nil {
			for _, s := range sources {
				s.Close()
			}
			return fmt.Errorf("open input %s: %w", spec, err)
		}
		sources = append(sources, src)
	}
	arb := input.NewArbiter(sources, frameSize, input.Options{Linger: rc.Linger})
	defer arb.Close()

	log.Info().
		Str("device", enc.Name()).
		Str("output", rc.Output).
		Str("dim", rc.Dims.String()).
		Int("inputs", len(sources)).
		Bool("linger", rc.Linger).
		Msg("pipeline starting")

	p := pipeline.New(arb, tr, enc, out, pipeline.Options{SingleFrame: rc.SingleFrame})
	return p.Run(ctx)
}
