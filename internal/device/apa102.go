package device

import (
	"fmt"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

// MaxBrightness is the largest APA102 global brightness step, a 5-bit
// current limit applied on top of the color data.
const MaxBrightness = 31

// APA102 emits the clocked SPI format of APA102/SK9822 strips: a zeroed
// start frame, then per pixel a 0xE0|brightness header and three color
// bytes, then ceil(n/16) bytes of 0xFF so the clock keeps running long
// enough to push the last pixels through the chain.
type APA102 struct {
	pixels     int
	brightness uint8
	order      ChannelOrder
}

func NewAPA102(pixels int, brightness uint8, order ChannelOrder) (*APA102, error) {
	if pixels < 1 {
		return nil, fmt.Errorf("apa102: pixel count %d: %w", pixels, ErrGeometryMismatch)
	}
	if brightness > MaxBrightness {
		return nil, fmt.Errorf("apa102: brightness %d exceeds %d", brightness, MaxBrightness)
	}
	return &APA102{pixels: pixels, brightness: brightness, order: order}, nil
}

func (d *APA102) Name() string { return "apa102" }

func (d *APA102) Encode(f pixel.Frame) (Output, error) {
	if len(f) != d.pixels {
		return Output{}, fmt.Errorf("apa102: frame of %d pixels, want %d: %w", len(f), d.pixels, ErrGeometryMismatch)
	}
	end := (d.pixels + 15) / 16
	buf := make([]byte, 0, 4+4*d.pixels+end)
	buf = append(buf, 0x00, 0x00, 0x00, 0x00)
	for _, p := range f {
		c := d.order.Arrange(p)
		buf = append(buf, 0xE0|d.brightness, c[0], c[1], c[2])
	}
	for i := 0; i < end; i++ {
		buf = append(buf, 0xFF)
	}
	return Output{Stream: buf}, nil
}
