package device

import (
	"fmt"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

const maxPlaneDepth = 8

// HUB75 emits binary-coded-modulation bit planes for shift-register
// panels that scan two rows at once. Each data byte packs the six color
// bits of one column: R1 G1 B1 of the top half in bits 0..2, R2 G2 B2 of
// the bottom half in bits 3..5.
//
// Plane 0 carries the most significant bit of each channel. A driver
// realizes the modulation by holding plane p on the panel for
// 2^(depth-1-p) units of time.
type HUB75 struct {
	width  int
	height int
	depth  int
}

func NewHUB75(width, height, depth int) (*HUB75, error) {
	if depth < 1 || depth > maxPlaneDepth {
		return nil, fmt.Errorf("hub75: depth %d, want 1..%d: %w", depth, maxPlaneDepth, ErrUnsupportedDepth)
	}
	if width < 1 || height < 2 || height%2 != 0 {
		return nil, fmt.Errorf("hub75: panel %dx%d: height must be even and positive: %w", width, height, ErrGeometryMismatch)
	}
	return &HUB75{width: width, height: height, depth: depth}, nil
}

func (d *HUB75) Name() string { return "hub75" }

func (d *HUB75) Encode(f pixel.Frame) (Output, error) {
	if len(f) != d.width*d.height {
		return Output{}, fmt.Errorf("hub75: frame of %d pixels on %dx%d panel: %w", len(f), d.width, d.height, ErrGeometryMismatch)
	}
	half := d.height / 2
	scans := make([]ScanUnit, 0, d.depth*half)
	for plane := 0; plane < d.depth; plane++ {
		for row := 0; row < half; row++ {
			top := f[row*d.width : (row+1)*d.width]
			bot := f[(row+half)*d.width : (row+half+1)*d.width]
			data := make([]byte, d.width)
			for x := 0; x < d.width; x++ {
				var b byte
				b |= d.planeBit(top[x].R, plane)
				b |= d.planeBit(top[x].G, plane) << 1
				b |= d.planeBit(top[x].B, plane) << 2
				b |= d.planeBit(bot[x].R, plane) << 3
				b |= d.planeBit(bot[x].G, plane) << 4
				b |= d.planeBit(bot[x].B, plane) << 5
				data[x] = b
			}
			scans = append(scans, ScanUnit{Plane: uint8(plane), Row: uint8(row), Data: data})
		}
	}
	return Output{Scans: scans}, nil
}

// planeBit extracts bit number plane of the channel value quantized to
// the configured depth, plane 0 being the most significant.
func (d *HUB75) planeBit(v uint8, plane int) byte {
	q := v >> (8 - d.depth)
	return byte(q>>(d.depth-1-plane)) & 1
}
