package sink

import (
	"bytes"
	"fmt"
	"io"

	"github.com/coreman2200/ledpipe/internal/device"
	"github.com/coreman2200/ledpipe/internal/geometry"
)

// termSink paints frames as 24-bit background blocks, two columns per
// pixel. It redraws in place by moving the cursor back up, so a running
// pipeline looks like a tiny live wall.
type termSink struct {
	w       io.Writer
	dims    geometry.Dimensions
	started bool
}

// NewTerm builds a terminal preview for frames of the given dimensions.
func NewTerm(w io.Writer, dims geometry.Dimensions) (Sink, error) {
	if dims.Size() < 1 {
		return nil, fmt.Errorf("terminal preview needs dimensions, got %s", dims)
	}
	return &termSink{w: w, dims: dims}, nil
}

func (s *termSink) Write(out device.Output) error {
	if out.Stream == nil {
		return ErrUnsupportedOutput
	}
	width, height := s.dims.Width, s.dims.Height
	if height == 0 {
		height = 1
	}
	if len(out.Stream) != width*height*3 {
		return fmt.Errorf("frame is %d bytes, preview wants %d", len(out.Stream), width*height*3)
	}
	var buf bytes.Buffer
	if s.started {
		fmt.Fprintf(&buf, "\x1b[%dA", height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 3
			fmt.Fprintf(&buf, "\x1b[48;2;%d;%d;%dm  ", out.Stream[i], out.Stream[i+1], out.Stream[i+2])
		}
		buf.WriteString("\x1b[0m\n")
	}
	s.started = true
	_, err := s.w.Write(buf.Bytes())
	return err
}

func (s *termSink) Close() error {
	_, err := io.WriteString(s.w, "\x1b[0m")
	return err
}
