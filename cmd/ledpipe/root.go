package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/ledpipe/internal/config"
)

// commandContext carries the shared flag values into the subcommands.
type commandContext struct {
	flags       config.Flags
	profilePath string
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:   "ledpipe",
		Short: "Like netcat, but for LEDs",
		Long: "ledpipe reads raw RGB pixels from files, pipes or sockets and emits\n" +
			"them in the wire format of an LED device, to a file, SPI port, serial\n" +
			"line or Art-Net node.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(ctx.flags.LogLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.flags.Output, "output", "o", "-", "output file or device, - for stdout")
	pf.StringArrayVarP(&ctx.flags.Inputs, "input", "i", []string{"-"}, "inputs in priority order: file, fifo, -, tcp://, ws://, pattern:")
	pf.BoolVarP(&ctx.flags.Linger, "linger", "l", false, "keep retrying inputs after EOF")
	pf.IntVarP(&ctx.flags.NumPixels, "num-pixels", "n", 0, "number of pixels in the string")
	pf.StringVarP(&ctx.flags.Geometry, "geometry", "g", "", "size of a two dimensional display, WxH")
	pf.StringArrayVarP(&ctx.flags.Transpose, "transpose", "t", nil, "transpositions applied in order: reverse, zigzag_x, zigzag_y, mirror_x, mirror_y")
	pf.StringVar(&ctx.flags.Driver, "driver", "", "output driver: spidev, serial, term, none (detected from the output path when unset)")
	pf.IntVar(&ctx.flags.SPIClockHz, "spidev-clock", 500000, "spidev clock frequency in Hertz")
	pf.IntVar(&ctx.flags.SerialBaud, "serial-baudrate", 12000000, "serial baud rate")
	pf.BoolVarP(&ctx.flags.SingleFrame, "one", "1", false, "send a single frame and exit")
	pf.StringVar(&ctx.profilePath, "profile", "", "YAML profile filling in unset flags")
	pf.StringVar(&ctx.flags.LogLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&ctx.flags.WaitOutput, "wait-output", false, "wait for the output device node to appear")
	pf.BoolVar(&ctx.flags.NoLock, "no-lock", false, "skip the advisory lock on the output device")
	pf.BoolVar(&ctx.flags.ForceTTY, "force-tty", false, "allow dumping frame bytes to a terminal")

	rootCmd.AddCommand(newAPA102Command(ctx))
	rootCmd.AddCommand(newWS2811Command(ctx))
	rootCmd.AddCommand(newLPD8806Command(ctx))
	rootCmd.AddCommand(newHUB75Command(ctx))
	rootCmd.AddCommand(newRawCommand(ctx))
	rootCmd.AddCommand(newArtnetCommand(ctx))

	return rootCmd
}

// setupLogging configures the global logger. Frame bytes may go to
// stdout, so logs stay on stderr; a terminal gets the console writer,
// anything else gets JSON.
func setupLogging(levelName string) error {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
	return nil
}
