package input

import (
	"fmt"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

// patternSource generates an endless frame stream algorithmically, for
// wiring checks before any real producer exists. It floods as fast as the
// pipeline drains it; pacing belongs to whoever consumes the output.
type patternSource struct {
	name      string
	frameSize int
	gen       func(frame int, buf []byte)

	frame int
	rest  []byte
}

func newPattern(name string, frameSize int) (*patternSource, error) {
	s := &patternSource{name: "pattern:" + name, frameSize: frameSize}
	switch name {
	case "sweep":
		s.gen = sweep
	case "rgb":
		s.gen = rgbCycle
	case "white":
		s.gen = white
	default:
		return nil, fmt.Errorf("unknown pattern %q", name)
	}
	return s, nil
}

func (s *patternSource) Read(p []byte) (int, error) {
	if len(s.rest) == 0 {
		buf := make([]byte, s.frameSize)
		s.gen(s.frame, buf)
		s.frame++
		s.rest = buf
	}
	n := copy(p, s.rest)
	s.rest = s.rest[n:]
	return n, nil
}

func (s *patternSource) Close() error { return nil }
func (s *patternSource) Name() string { return s.name }

// sweep walks a single white pixel along the strip.
func sweep(frame int, buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	n := len(buf) / pixel.BytesPerPixel
	if n == 0 {
		return
	}
	at := (frame % n) * pixel.BytesPerPixel
	buf[at], buf[at+1], buf[at+2] = 0xFF, 0xFF, 0xFF
}

// rgbCycle shows solid red, green, blue in turn.
func rgbCycle(frame int, buf []byte) {
	ch := frame % 3
	for i := range buf {
		if i%pixel.BytesPerPixel == ch {
			buf[i] = 0xFF
		} else {
			buf[i] = 0
		}
	}
}

func white(_ int, buf []byte) {
	for i := range buf {
		buf[i] = 0xFF
	}
}
