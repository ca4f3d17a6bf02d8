package device

import (
	"fmt"

	"github.com/coreman2200/ledpipe/internal/artnet"
	"github.com/coreman2200/ledpipe/internal/pixel"
)

// ArtNet slices a frame's channel data across consecutive DMX universes
// and wraps each slice in an ArtDmx packet.
//
// The sequence counter runs 1..255 and wraps back to 1; 0 is skipped
// because receivers read it as "sequencing disabled". Every packet of one
// frame carries the same sequence number so receivers can reassemble the
// frame across universes.
type ArtNet struct {
	pixels       int
	first        uint16
	universeSize int
	seq          uint8
}

func NewArtNet(pixels int, firstUniverse uint16, universeSize int) (*ArtNet, error) {
	if pixels < 1 {
		return nil, fmt.Errorf("artnet: pixel count %d: %w", pixels, ErrGeometryMismatch)
	}
	if universeSize < 1 || universeSize > artnet.MaxDMXLength {
		return nil, fmt.Errorf("artnet: universe size %d, want 1..%d", universeSize, artnet.MaxDMXLength)
	}
	count := (pixels*pixel.BytesPerPixel + universeSize - 1) / universeSize
	if int(firstUniverse)+count-1 > 0xFFFF {
		return nil, fmt.Errorf("artnet: %d universes starting at %d overflow the address space", count, firstUniverse)
	}
	return &ArtNet{pixels: pixels, first: firstUniverse, universeSize: universeSize}, nil
}

func (d *ArtNet) Name() string { return "artnet" }

func (d *ArtNet) Encode(f pixel.Frame) (Output, error) {
	if len(f) != d.pixels {
		return Output{}, fmt.Errorf("artnet: frame of %d pixels, want %d: %w", len(f), d.pixels, ErrGeometryMismatch)
	}
	d.seq++
	if d.seq == 0 {
		d.seq = 1
	}
	data := f.Bytes()
	grams := make([][]byte, 0, (len(data)+d.universeSize-1)/d.universeSize)
	for i := 0; i*d.universeSize < len(data); i++ {
		lo := i * d.universeSize
		hi := lo + d.universeSize
		if hi > len(data) {
			hi = len(data)
		}
		pkt, err := artnet.PackDMX(d.seq, d.first+uint16(i), data[lo:hi])
		if err != nil {
			return Output{}, fmt.Errorf("artnet universe %d: %w", d.first+uint16(i), err)
		}
		grams = append(grams, pkt)
	}
	return Output{Datagrams: grams}, nil
}
