package geometry

import (
	"fmt"

	"github.com/coreman2200/ledpipe/internal/pixel"
)

// A Mapping permutes one logical index into its physical position.
// Mappings compose left to right and must stay bijective over the layout.
type Mapping interface {
	Apply(i int) int
	Name() string
}

type identity struct{}

func (identity) Apply(i int) int { return i }
func (identity) Name() string    { return "identity" }

type reverse struct{ n int }

func (m reverse) Apply(i int) int { return m.n - 1 - i }
func (m reverse) Name() string    { return "reverse" }

// zigzagX flips the X direction of every odd row, matching strips snaked
// left-to-right then right-to-left across a panel.
type zigzagX struct{ w int }

func (m zigzagX) Apply(i int) int {
	if (i/m.w)%2 == 0 {
		return i
	}
	return (i/m.w)*m.w + (m.w - 1 - i%m.w)
}
func (m zigzagX) Name() string { return "zigzag_x" }

// zigzagY flips the Y direction of every odd column, the vertical
// counterpart of zigzagX.
type zigzagY struct{ w, h int }

func (m zigzagY) Apply(i int) int {
	c := i % m.w
	if c%2 == 0 {
		return i
	}
	return (m.h-1-i/m.w)*m.w + c
}
func (m zigzagY) Name() string { return "zigzag_y" }

type mirrorX struct{ w int }

func (m mirrorX) Apply(i int) int { return (i/m.w)*m.w + (m.w - 1 - i%m.w) }
func (m mirrorX) Name() string    { return "mirror_x" }

type mirrorY struct{ w, h int }

func (m mirrorY) Apply(i int) int { return (m.h-1-i/m.w)*m.w + i%m.w }
func (m mirrorY) Name() string    { return "mirror_y" }

// New resolves a mapping by its configuration name. Axis mappings fail on
// strip layouts.
func New(name string, d Dimensions) (Mapping, error) {
	switch name {
	case "identity":
		return identity{}, nil
	case "reverse":
		return reverse{n: d.Size()}, nil
	case "zigzag_x", "zigzag_y", "mirror_x", "mirror_y":
		if !d.Planar() {
			return nil, fmt.Errorf("%s: %w", name, ErrNeedsGrid)
		}
		switch name {
		case "zigzag_x":
			return zigzagX{w: d.Width}, nil
		case "zigzag_y":
			return zigzagY{w: d.Width, h: d.Height}, nil
		case "mirror_x":
			return mirrorX{w: d.Width}, nil
		default:
			return mirrorY{w: d.Width, h: d.Height}, nil
		}
	default:
		return nil, fmt.Errorf("unknown transposition %q", name)
	}
}

// Transposer applies a permutation baked once at startup to every frame.
type Transposer struct {
	table []int
}

// NewTransposer resolves the named mappings in order and bakes their
// composition.
func NewTransposer(d Dimensions, names ...string) (*Transposer, error) {
	ms := make([]Mapping, 0, len(names))
	for _, name := range names {
		m, err := New(name, d)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return Compose(d, ms...)
}

// Compose bakes mappings into a lookup table and verifies the chain is
// still a bijection over the layout.
func Compose(d Dimensions, ms ...Mapping) (*Transposer, error) {
	n := d.Size()
	table := make([]int, n)
	seen := make([]bool, n)
	for i := 0; i < n; i++ {
		p := i
		for _, m := range ms {
			p = m.Apply(p)
		}
		if p < 0 || p >= n {
			return nil, fmt.Errorf("mapping sends index %d to %d, outside %s: %w", i, p, d, ErrNotBijective)
		}
		if seen[p] {
			return nil, fmt.Errorf("mapping collapses two pixels onto index %d: %w", p, ErrNotBijective)
		}
		seen[p] = true
		table[i] = p
	}
	return &Transposer{table: table}, nil
}

// Len is the pixel count the table was built for.
func (t *Transposer) Len() int { return len(t.table) }

// Table exposes the baked permutation for inspection.
func (t *Transposer) Table() []int { return t.table }

// Transpose scatters a frame into physical order. The input frame is left
// untouched and must carry exactly Len pixels.
func (t *Transposer) Transpose(f pixel.Frame) pixel.Frame {
	out := pixel.NewFrame(len(t.table))
	for i, p := range f {
		out[t.table[i]] = p
	}
	return out
}
