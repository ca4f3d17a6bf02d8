package pixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromBytes(t *testing.T) {
	raw := []byte{0x10, 0x20, 0x30, 0xFF, 0x00, 0x7F}
	f := FromBytes(raw)

	assert.Len(t, f, 2)
	assert.Equal(t, Pixel{R: 0x10, G: 0x20, B: 0x30}, f[0])
	assert.Equal(t, Pixel{R: 0xFF, G: 0x00, B: 0x7F}, f[1])
}

func TestFromBytesDropsPartialPixel(t *testing.T) {
	f := FromBytes([]byte{1, 2, 3, 4, 5})
	assert.Len(t, f, 1)
}

func TestBytesRoundTrip(t *testing.T) {
	raw := []byte{9, 8, 7, 6, 5, 4, 3, 2, 1}
	assert.Equal(t, raw, FromBytes(raw).Bytes())
}

func TestNewFrameIsBlack(t *testing.T) {
	f := NewFrame(4)
	for i, p := range f {
		if p != (Pixel{}) {
			t.Fatalf("pixel %d not black: %+v", i, p)
		}
	}
}
