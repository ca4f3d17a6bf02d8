package sink

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coreman2200/ledpipe/internal/device"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// ws2811-class chips self-clock at 800kHz; each chip bit costs three
// SPI bits, with headroom on top for the reset latch.
const nrzChipRate physic.Frequency = 800

// spiSink clocks stream bytes out an SPI port. Scan units are clocked
// out in order too, which suits chained shift registers.
type spiSink struct {
	port    spi.PortCloser
	conn    spi.Conn
	release func()
}

func openSPI(cfg Config, release func()) (Sink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	port, err := spireg.Open(spiPortName(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("open spi port %s: %w", cfg.Path, err)
	}
	s, err := connectSPI(port, cfg, release)
	if err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// spireg registers ports as "SPIn.m"; accept raw device paths too.
func spiPortName(path string) string {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "spidev") {
		return "SPI" + strings.TrimPrefix(base, "spidev")
	}
	return path
}

func connectSPI(port spi.PortCloser, cfg Config, release func()) (Sink, error) {
	if cfg.NRZ {
		opts := nrzled.Opts{
			NumPixels: cfg.Pixels,
			Channels:  3,
			Freq:      ((nrzChipRate * 3) + 100) * physic.KiloHertz,
		}
		dev, err := nrzled.NewSPI(port, &opts)
		if err != nil {
			return nil, fmt.Errorf("attach nrz driver: %w", err)
		}
		return &nrzSink{port: port, dev: dev, release: release}, nil
	}
	mode := spi.Mode(cfg.SPIMode & 0x3)
	if cfg.SPILSBFirst {
		mode |= spi.LSBFirst
	}
	conn, err := port.Connect(physic.Frequency(cfg.SPIClockHz)*physic.Hertz, mode, 8)
	if err != nil {
		return nil, fmt.Errorf("configure spi port: %w", err)
	}
	return &spiSink{port: port, conn: conn, release: release}, nil
}

func (s *spiSink) Write(out device.Output) error {
	switch {
	case out.Stream != nil:
		return s.conn.Tx(out.Stream, nil)
	case out.Scans != nil:
		for _, sc := range out.Scans {
			if err := s.conn.Tx(sc.Data, nil); err != nil {
				return err
			}
		}
		return nil
	}
	return ErrUnsupportedOutput
}

func (s *spiSink) Close() error {
	if s.release != nil {
		defer s.release()
	}
	return s.port.Close()
}

// nrzSink drives ws2811-class strips through the SPI MOSI pin, letting
// the nrzled driver stretch each bit into the chip's waveform.
type nrzSink struct {
	port    spi.PortCloser
	dev     *nrzled.Dev
	release func()
}

func (s *nrzSink) Write(out device.Output) error {
	if out.Stream == nil {
		return ErrUnsupportedOutput
	}
	_, err := s.dev.Write(out.Stream)
	return err
}

func (s *nrzSink) Close() error {
	if s.release != nil {
		defer s.release()
	}
	if err := s.dev.Halt(); err != nil {
		s.port.Close()
		return err
	}
	return s.port.Close()
}
