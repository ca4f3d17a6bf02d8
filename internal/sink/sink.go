// Package sink delivers encoded frames to wherever the LEDs actually
// live: an SPI port, a serial line, Art-Net fixtures on the network, a
// file or pipe, or a terminal preview. Every sink consumes one encoder
// output per Write and owns cleanup of the underlying handle on Close.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreman2200/ledpipe/internal/device"
	"github.com/coreman2200/ledpipe/internal/geometry"
)

// Sink accepts one encoded frame per call. Implementations are not safe
// for concurrent use; the pipeline serializes writes.
type Sink interface {
	Write(out device.Output) error
	Close() error
}

// ErrUnsupportedOutput is returned when an encoder's output kind cannot
// be expressed on the chosen transport, e.g. datagrams on SPI.
var ErrUnsupportedOutput = errors.New("encoder output not supported by this sink")

// Driver names accepted on the command line and reported by DetectDriver.
const (
	DriverNone   = "none"
	DriverSPIDev = "spidev"
	DriverSerial = "serial"
	DriverTerm   = "term"
)

// DetectDriver guesses a driver from the conventional naming of Linux
// device nodes. An empty string means no guess; the path is then treated
// as a plain file.
func DetectDriver(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "spidev"):
		return DriverSPIDev
	case strings.HasPrefix(base, "ttyS"),
		strings.HasPrefix(base, "ttyUSB"),
		strings.HasPrefix(base, "ttyACM"),
		strings.HasPrefix(base, "ttyAMA"):
		return DriverSerial
	}
	return ""
}

// Config selects and parametrizes an output sink.
type Config struct {
	Path   string // device node or file, "-" for stdout
	Driver string // one of the Driver constants; empty means detect from Path

	// spidev
	SPIClockHz  int
	SPIMode     uint8 // bit 1 clock polarity, bit 0 clock phase
	SPILSBFirst bool
	NRZ         bool // stretch bits into the self-clocked ws2811 waveform
	Pixels      int  // required by NRZ

	// serial
	SerialBaud int

	// terminal preview
	Dims geometry.Dimensions

	Lock          bool // flock the device node before opening
	WaitForDevice bool // block until the node exists (hotplug)
}

// Open builds the sink described by cfg. It blocks while waiting for a
// hotplugged device when cfg.WaitForDevice is set, so it takes the run
// context.
func Open(ctx context.Context, cfg Config) (Sink, error) {
	driver := cfg.Driver
	if driver == "" && cfg.Path != "-" {
		driver = DetectDriver(cfg.Path)
	}
	switch driver {
	case "", DriverNone:
		return openWriter(cfg.Path)
	case DriverTerm:
		return NewTerm(os.Stdout, cfg.Dims)
	case DriverSPIDev, DriverSerial:
	default:
		return nil, fmt.Errorf("unknown output driver %q", driver)
	}

	if cfg.WaitForDevice {
		if err := WaitForDevice(ctx, cfg.Path); err != nil {
			return nil, err
		}
	}
	var release func()
	if cfg.Lock {
		var err error
		if release, err = lockDevice(cfg.Path); err != nil {
			return nil, err
		}
	}
	var (
		s   Sink
		err error
	)
	switch driver {
	case DriverSPIDev:
		s, err = openSPI(cfg, release)
	case DriverSerial:
		s, err = openSerial(cfg, release)
	}
	if err != nil && release != nil {
		release()
	}
	return s, err
}

// writerSink feeds any io.WriteCloser: stdout, regular files, FIFOs.
// Scans and datagrams degrade to sequential writes, which suits
// capturing a session for inspection or replay.
type writerSink struct {
	w io.WriteCloser
}

// NewWriter wraps w as a sink.
func NewWriter(w io.WriteCloser) Sink { return &writerSink{w: w} }

func openWriter(path string) (Sink, error) {
	if path == "" || path == "-" {
		return &writerSink{w: os.Stdout}, nil
	}
	// O_WRONLY so opening a FIFO blocks until its reader shows up.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}
	return &writerSink{w: f}, nil
}

func (s *writerSink) Write(out device.Output) error {
	switch {
	case out.Stream != nil:
		_, err := s.w.Write(out.Stream)
		return err
	case out.Scans != nil:
		for _, sc := range out.Scans {
			if _, err := s.w.Write(sc.Data); err != nil {
				return err
			}
		}
	case out.Datagrams != nil:
		for _, gram := range out.Datagrams {
			if _, err := s.w.Write(gram); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *writerSink) Close() error {
	if s.w == os.Stdout {
		return nil
	}
	return s.w.Close()
}
