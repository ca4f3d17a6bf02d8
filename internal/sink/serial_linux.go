//go:build linux

package sink

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/coreman2200/ledpipe/internal/device"
)

// serialSink pushes stream bytes down a tty. LED serial bridges run at
// megabaud rates the classic B-constants cannot name, so the rate goes
// in through termios2 and BOTHER.
type serialSink struct {
	f       *os.File
	release func()
}

// serialTermios builds raw 8N1 line settings with a literal baud rate.
// The linux Termios struct shares the kernel's termios2 layout, so the
// TCSETS2 ioctl takes it as is, with BOTHER selecting the Ispeed/Ospeed
// fields over the legacy B-constants.
func serialTermios(baud int) unix.Termios {
	return unix.Termios{
		Cflag:  unix.BOTHER | unix.CS8 | unix.CREAD | unix.CLOCAL,
		Ispeed: uint32(baud),
		Ospeed: uint32(baud),
	}
}

func openSerial(cfg Config, release func()) (Sink, error) {
	f, err := os.OpenFile(cfg.Path, os.O_WRONLY|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("open serial port: %w", err)
	}
	tio := serialTermios(cfg.SerialBaud)
	if _, _, e := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.TCSETS2, uintptr(unsafe.Pointer(&tio))); e != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("set baud rate %d: %v", cfg.SerialBaud, e)
	}
	return &serialSink{f: f, release: release}, nil
}

func (s *serialSink) Write(out device.Output) error {
	switch {
	case out.Stream != nil:
		_, err := s.f.Write(out.Stream)
		return err
	case out.Scans != nil:
		for _, sc := range out.Scans {
			if _, err := s.f.Write(sc.Data); err != nil {
				return err
			}
		}
		return nil
	}
	return ErrUnsupportedOutput
}

func (s *serialSink) Close() error {
	if s.release != nil {
		defer s.release()
	}
	return s.f.Close()
}
