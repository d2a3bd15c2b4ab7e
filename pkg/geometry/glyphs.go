package geometry

import (
	"fmt"
	"math"
	"math/rand"

	"cogentcore.org/core/math32"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/glyph"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// GlyphPoint is one sampled glyph location with its scaled axes. Label is
// the formatted label field value, empty when there is none.
type GlyphPoint struct {
	Vertex
	Axes  [3][3]float64
	Label string
}

// GlyphAxes derives the three scaled glyph axes from an orientation-scale
// value. The component count selects the interpretation: none gives unit
// axes, one scales them uniformly, two or three give the first axis, four
// or six the first two axes and nine all three. Each axis has length
// base[i] + scaleFactors[i]*magnitude, multiplied by the matching signed
// scale component when one is given.
func GlyphAxes(orientation []float64, base, scaleFactors [3]float64, signed []float64) ([3][3]float64, error) {
	dirs := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	var mags [3]float64

	vec := func(v []float64) [3]float64 {
		var out [3]float64
		copy(out[:], v)
		return out
	}
	switch len(orientation) {
	case 0:
	case 1:
		mags = [3]float64{orientation[0], orientation[0], orientation[0]}
	case 2, 3:
		a1 := vec(orientation)
		m := norm(a1)
		if m > 0 {
			dirs[0] = scale(a1, 1/m)
			dirs[1] = perpendicular(dirs[0])
			dirs[2] = cross(dirs[0], dirs[1])
		}
		mags = [3]float64{m, m, m}
	case 4, 6:
		half := len(orientation) / 2
		a1, a2 := vec(orientation[:half]), vec(orientation[half:])
		a3 := cross(a1, a2)
		for i, a := range [3][3]float64{a1, a2, a3} {
			mags[i] = norm(a)
			if mags[i] > 0 {
				dirs[i] = scale(a, 1/mags[i])
			}
		}
	case 9:
		for i := 0; i < 3; i++ {
			a := vec(orientation[3*i : 3*i+3])
			mags[i] = norm(a)
			if mags[i] > 0 {
				dirs[i] = scale(a, 1/mags[i])
			}
		}
	default:
		return dirs, fmt.Errorf("orientation-scale field has %d components", len(orientation))
	}

	var axes [3][3]float64
	for i := 0; i < 3; i++ {
		size := base[i] + scaleFactors[i]*mags[i]
		if len(signed) > 0 {
			size *= signed[min(i, len(signed)-1)]
		}
		axes[i] = scale(dirs[i], size)
	}
	return axes, nil
}

// GlyphSet places the glyphs of one entity. Each point is repeated as the
// mode requires and shifted by offset, given in units of its own axes.
// Labels are emitted per label slot when withLabels is set.
func GlyphSet(id domain.ID, time float64, points []GlyphPoint, mode glyph.RepeatMode, offset, labelOffset [3]float64, withLabels bool) *primitive.GlyphSet {
	var verts []Vertex
	gs := &primitive.GlyphSet{}
	for _, p := range points {
		for slot, axes := range mode.Axes(p.Axes) {
			pos := p.Position
			for i := 0; i < 3; i++ {
				pos = add(pos, scale(axes[i], offset[i]))
			}
			v := p.Vertex
			v.Position = pos
			verts = append(verts, v)
			gs.Axes = append(gs.Axes, [3]math32.Vector3{vec3(axes[0]), vec3(axes[1]), vec3(axes[2])})

			if withLabels && slot < mode.LabelSlots() {
				lp := pos
				for i := 0; i < 3; i++ {
					lp = add(lp, scale(axes[i], labelOffset[i]))
				}
				gs.Labels = append(gs.Labels, p.Label)
				gs.LabelPoints = append(gs.LabelPoints, vec3(lp))
			}
		}
	}
	gs.Header = header(id, time, verts)
	gs.Points = positions(verts)
	return gs
}

// SamplingMode chooses where glyph points are placed within an element.
type SamplingMode int

const (
	SampleCellCentres SamplingMode = iota
	SampleCellCorners
	SampleCellPoisson
	SampleSetLocation
)

var samplingNames = []string{"cell_centres", "cell_corners", "cell_poisson", "set_location"}

func (m SamplingMode) String() string {
	if m >= 0 && int(m) < len(samplingNames) {
		return samplingNames[m]
	}
	return fmt.Sprintf("SamplingMode(%d)", int(m))
}

// ParseSamplingMode returns the mode with the given name.
func ParseSamplingMode(s string) (SamplingMode, error) {
	for i, name := range samplingNames {
		if name == s {
			return SamplingMode(i), nil
		}
	}
	return SampleCellCentres, fmt.Errorf("unknown sampling mode %q", s)
}

// SamplePoints returns the xi of the glyph points of an element of
// dimension d. Poisson sampling draws count points from a generator
// seeded by seed, so repeated builds place the same points.
func SamplePoints(mode SamplingMode, d int, divisions [3]int, exact [3]float64, count int, seed int64) [][3]float64 {
	switch mode {
	case SampleCellCorners:
		return domain.Lattice(d, divisions)
	case SampleSetLocation:
		return [][3]float64{exact}
	case SampleCellPoisson:
		r := rand.New(rand.NewSource(seed))
		out := make([][3]float64, count)
		for i := range out {
			for k := 0; k < d; k++ {
				out[i][k] = r.Float64()
			}
		}
		return out
	default:
		return domain.CellCentres(d, divisions)
	}
}

// PoissonCount converts a density and an element measure into a point
// count.
func PoissonCount(density, measure float64) int {
	if density <= 0 || measure <= 0 || math.IsNaN(density*measure) {
		return 0
	}
	return int(math.Round(density * measure))
}
