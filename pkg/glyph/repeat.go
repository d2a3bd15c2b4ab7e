package glyph

import "fmt"

// RepeatMode controls how many glyphs are drawn per point and along which
// axes.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota
	RepeatAxes2D
	RepeatAxes3D
	RepeatMirror
)

var repeatNames = []string{"none", "axes_2d", "axes_3d", "mirror"}

func (m RepeatMode) String() string {
	if m >= 0 && int(m) < len(repeatNames) {
		return repeatNames[m]
	}
	return fmt.Sprintf("RepeatMode(%d)", int(m))
}

// ParseRepeatMode returns the mode with the given name.
func ParseRepeatMode(s string) (RepeatMode, error) {
	for i, name := range repeatNames {
		if name == s {
			return RepeatMode(i), nil
		}
	}
	return RepeatNone, fmt.Errorf("unknown glyph repeat mode %q", s)
}

// Count returns the number of glyphs drawn per point.
func (m RepeatMode) Count() int {
	switch m {
	case RepeatAxes2D, RepeatMirror:
		return 2
	case RepeatAxes3D:
		return 3
	default:
		return 1
	}
}

// LabelSlots returns the number of label texts a point can carry. Mirrored
// glyphs share one label.
func (m RepeatMode) LabelSlots() int {
	if m == RepeatMirror {
		return 1
	}
	return m.Count()
}

// Axes returns the glyph axes of each repeated glyph, built from the
// three point axes a1, a2, a3. Mirror draws the second glyph reversed.
func (m RepeatMode) Axes(a [3][3]float64) [][3][3]float64 {
	neg := func(v [3]float64) [3]float64 { return [3]float64{-v[0], -v[1], -v[2]} }
	switch m {
	case RepeatAxes2D:
		return [][3][3]float64{a, {a[1], a[2], a[0]}}
	case RepeatAxes3D:
		return [][3][3]float64{a, {a[1], a[2], a[0]}, {a[2], a[0], a[1]}}
	case RepeatMirror:
		return [][3][3]float64{a, {neg(a[0]), neg(a[1]), a[2]}}
	default:
		return [][3][3]float64{a}
	}
}
