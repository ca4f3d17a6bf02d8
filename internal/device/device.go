// Package device encodes physically-ordered frames into the byte formats
// LED hardware expects.
//
// Encoders are pure functions of the frame with one exception: the
// Art-Net encoder advances its DMX sequence counter on every frame. A
// single pipeline goroutine drives a single encoder, so none of them
// lock.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

var (
	// ErrGeometryMismatch marks a frame whose pixel count differs from
	// the count the encoder was built for.
	ErrGeometryMismatch = errors.New("frame length does not match configured geometry")
	// ErrUnsupportedDepth marks a panel bit depth outside 1..8.
	ErrUnsupportedDepth = errors.New("unsupported color depth")
)

// ScanUnit is one row scan of one bit plane of a multiplexed panel.
// Plane 0 is the most significant bit; a driver displays it
// 2^(depth-1-plane) times longer than the least significant plane.
type ScanUnit struct {
	Plane uint8
	Row   uint8
	Data  []byte
}

// Output is the encoded form of exactly one frame. Exactly one field is
// set, matching the encoder's transport kind.
type Output struct {
	// Stream is a contiguous byte run for SPI, serial, files and pipes.
	Stream []byte
	// Datagrams are discrete packets, sent in order within the frame.
	Datagrams [][]byte
	// Scans are per-plane row scans for multiplexed panels.
	Scans []ScanUnit
}

// Encoder turns one physically-ordered frame into its wire form.
type Encoder interface {
	Name() string
	Encode(f pixel.Frame) (Output, error)
}

// ChannelOrder is the order a chip shifts its three color channels out,
// e.g. "bgr" on APA102 or "grb" on the WS2812 family.
type ChannelOrder struct {
	name string
	idx  [3]int
}

// ParseChannelOrder accepts any permutation of the letters r, g and b.
func ParseChannelOrder(s string) (ChannelOrder, error) {
	name := strings.ToLower(s)
	if len(name) != 3 {
		return ChannelOrder{}, fmt.Errorf("channel order %q: want three of r, g, b", s)
	}
	var o ChannelOrder
	var seen [3]bool
	for i, r := range name {
		var ch int
		switch r {
		case 'r':
			ch = 0
		case 'g':
			ch = 1
		case 'b':
			ch = 2
		default:
			return ChannelOrder{}, fmt.Errorf("channel order %q: unknown channel %q", s, r)
		}
		if seen[ch] {
			return ChannelOrder{}, fmt.Errorf("channel order %q: duplicate %c", s, r)
		}
		seen[ch] = true
		o.idx[i] = ch
	}
	o.name = name
	return o, nil
}

// MustChannelOrder is ParseChannelOrder for known-good literals.
func MustChannelOrder(s string) ChannelOrder {
	o, err := ParseChannelOrder(s)
	if err != nil {
		panic(err)
	}
	return o
}

// Conventional defaults for chips that have one.
var (
	OrderRGB = MustChannelOrder("rgb")
	OrderGRB = MustChannelOrder("grb")
	OrderBGR = MustChannelOrder("bgr")
)

// Arrange returns the pixel's channels in wire order.
func (o ChannelOrder) Arrange(p pixel.Pixel) [3]byte {
	c := [3]byte{p.R, p.G, p.B}
	return [3]byte{c[o.idx[0]], c[o.idx[1]], c[o.idx[2]]}
}

func (o ChannelOrder) String() string { return o.name }

// Raw passes color bytes through untouched, for pre-encoded streams and
// homebrew receivers.
type Raw struct {
	pixels int
}

func NewRaw(pixels int) (*Raw, error) {
	if pixels < 1 {
		return nil, fmt.Errorf("raw: pixel count %d: %w", pixels, ErrGeometryMismatch)
	}
	return &Raw{pixels: pixels}, nil
}

func (d *Raw) Name() string { return "raw" }

func (d *Raw) Encode(f pixel.Frame) (Output, error) {
	if len(f) != d.pixels {
		return Output{}, fmt.Errorf("raw: frame of %d pixels, want %d: %w", len(f), d.pixels, ErrGeometryMismatch)
	}
	return Output{Stream: f.Bytes()}, nil
}
