// Package geometry maps logical frame order onto the order LEDs are
// physically wired in.
package geometry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNeedsGrid marks an axis mapping configured for a bare strip.
	ErrNeedsGrid = errors.New("mapping requires panel geometry")
	// ErrNotBijective marks a mapping chain that drops or doubles pixels.
	ErrNotBijective = errors.New("mapping is not a bijection")
)

// Dimensions describes the logical pixel layout. A bare strip carries only
// a Width; panels carry both axes. Height 0 marks a strip, and the
// axis-based mappings refuse it.
type Dimensions struct {
	Width  int
	Height int
}

// Strip returns one-dimensional dimensions for a pixel count.
func Strip(n int) Dimensions { return Dimensions{Width: n} }

// Grid returns two-dimensional panel dimensions.
func Grid(w, h int) Dimensions { return Dimensions{Width: w, Height: h} }

// Planar reports whether the layout has a second axis.
func (d Dimensions) Planar() bool { return d.Height > 0 }

// Size is the total pixel count of the layout.
func (d Dimensions) Size() int {
	if !d.Planar() {
		return d.Width
	}
	return d.Width * d.Height
}

func (d Dimensions) String() string {
	if !d.Planar() {
		return strconv.Itoa(d.Width)
	}
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// ParseDimensions parses panel geometry in "WxH" form.
func ParseDimensions(s string) (Dimensions, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return Dimensions{}, fmt.Errorf("geometry %q: want WxH", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return Dimensions{}, fmt.Errorf("geometry width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return Dimensions{}, fmt.Errorf("geometry height %q: %w", parts[1], err)
	}
	if w < 1 || h < 1 {
		return Dimensions{}, fmt.Errorf("geometry %q: axes must be positive", s)
	}
	return Grid(w, h), nil
}
