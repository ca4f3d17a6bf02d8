// Package pixel holds the raw color types passed between pipeline stages.
package pixel

// BytesPerPixel is the wire width of one pixel on the input side: one byte
// per channel, red first.
const BytesPerPixel = 3

// Pixel is a single LED color value.
type Pixel struct {
	R, G, B uint8
}

// Frame is one complete refresh of a strip or panel in logical raster
// order. Its length is fixed by the configured geometry and never changes
// while the pipeline runs.
type Frame []Pixel

// NewFrame returns an all-black frame of n pixels.
func NewFrame(n int) Frame {
	return make(Frame, n)
}

// FromBytes reassembles pixels from raw RGB bytes. Trailing bytes short of
// a full pixel are dropped; readers hand in exact multiples.
func FromBytes(raw []byte) Frame {
	f := make(Frame, len(raw)/BytesPerPixel)
	for i := range f {
		f[i] = Pixel{
			R: raw[i*BytesPerPixel],
			G: raw[i*BytesPerPixel+1],
			B: raw[i*BytesPerPixel+2],
		}
	}
	return f
}

// Bytes serializes the frame back to raw RGB, 3 bytes per pixel.
func (f Frame) Bytes() []byte {
	buf := make([]byte, 0, len(f)*BytesPerPixel)
	for _, p := range f {
		buf = append(buf, p.R, p.G, p.B)
	}
	return buf
}
