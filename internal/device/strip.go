package device

import (
	"fmt"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

// WS2811 covers the self-clocking one-wire strip family (WS2811, WS2812,
// SK6812). The encoded stream is bare channel bytes in chip order; the
// NRZ bit timing is the sink's job.
type WS2811 struct {
	pixels int
	order  ChannelOrder
}

func NewWS2811(pixels int, order ChannelOrder) (*WS2811, error) {
	if pixels < 1 {
		return nil, fmt.Errorf("ws2811: pixel count %d: %w", pixels, ErrGeometryMismatch)
	}
	return &WS2811{pixels: pixels, order: order}, nil
}

func (d *WS2811) Name() string { return "ws2811" }

func (d *WS2811) Encode(f pixel.Frame) (Output, error) {
	if len(f) != d.pixels {
		return Output{}, fmt.Errorf("ws2811: frame of %d pixels, want %d: %w", len(f), d.pixels, ErrGeometryMismatch)
	}
	buf := make([]byte, 0, 3*d.pixels)
	for _, p := range f {
		c := d.order.Arrange(p)
		buf = append(buf, c[0], c[1], c[2])
	}
	return Output{Stream: buf}, nil
}

// LPD8806 carries 7 significant bits per channel with the high bit always
// set, so 0x00 encodes as 0x80 and 0x7F as 0xFF. After the color data
// come ceil(n/32) zero bytes to latch the shifted values.
type LPD8806 struct {
	pixels int
	order  ChannelOrder
}

func NewLPD8806(pixels int, order ChannelOrder) (*LPD8806, error) {
	if pixels < 1 {
		return nil, fmt.Errorf("lpd8806: pixel count %d: %w", pixels, ErrGeometryMismatch)
	}
	return &LPD8806{pixels: pixels, order: order}, nil
}

func (d *LPD8806) Name() string { return "lpd8806" }

func (d *LPD8806) Encode(f pixel.Frame) (Output, error) {
	if len(f) != d.pixels {
		return Output{}, fmt.Errorf("lpd8806: frame of %d pixels, want %d: %w", len(f), d.pixels, ErrGeometryMismatch)
	}
	latch := (d.pixels + 31) / 32
	buf := make([]byte, 0, 3*d.pixels+latch)
	for _, p := range f {
		c := d.order.Arrange(p)
		buf = append(buf, c[0]|0x80, c[1]|0x80, c[2]|0x80)
	}
	for i := 0; i < latch; i++ {
		buf = append(buf, 0x00)
	}
	return Output{Stream: buf}, nil
}
