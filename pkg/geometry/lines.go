package geometry

import (
	"fmt"
	"math"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// LineShape selects how 1-D geometry is drawn.
type LineShape int

const (
	ShapeLine LineShape = iota
	ShapeRibbon
	ShapeCircleExtrusion
	ShapeSquareExtrusion
)

var lineShapeNames = []string{"line", "ribbon", "circle_extrusion", "square_extrusion"}

func (s LineShape) String() string {
	if s >= 0 && int(s) < len(lineShapeNames) {
		return lineShapeNames[s]
	}
	return fmt.Sprintf("LineShape(%d)", int(s))
}

// ParseLineShape returns the shape with the given name.
func ParseLineShape(s string) (LineShape, error) {
	for i, name := range lineShapeNames {
		if name == s {
			return LineShape(i), nil
		}
	}
	return ShapeLine, fmt.Errorf("unknown line shape %q", s)
}

// Extruded reports whether the shape produces a surface.
func (s LineShape) Extruded() bool { return s != ShapeLine }

// LineSegments joins vertices sampled along a 1-D element into a strip.
func LineSegments(id domain.ID, time float64, verts []Vertex) (*primitive.Polyline, error) {
	if len(verts) < 2 {
		return nil, generationError(id, "line needs at least 2 points, got %d", len(verts))
	}
	return &primitive.Polyline{Header: header(id, time, verts), Points: positions(verts)}, nil
}

// Section is the cross-section of an extruded line at one vertex. Width
// and Thickness are full sizes; Side is an optional preferred direction
// for the first section axis.
type Section struct {
	Width     float64
	Thickness float64
	Side      [3]float64
}

// Extrusion sweeps a cross-section along vertices sampled on a line.
// Ribbons are flat strips of the section width. Circle and square tubes
// use divisions facets around the line; squares always use four.
func Extrusion(id domain.ID, time float64, shape LineShape, verts []Vertex, sections []Section, divisions int) (*primitive.Surface, error) {
	if !shape.Extruded() {
		return nil, generationError(id, "line shape %s is not extruded", shape)
	}
	if len(verts) < 2 {
		return nil, generationError(id, "extrusion needs at least 2 points, got %d", len(verts))
	}
	if len(sections) != len(verts) {
		return nil, generationError(id, "extrusion has %d sections for %d points", len(sections), len(verts))
	}

	var around []float64
	switch shape {
	case ShapeRibbon:
		around = []float64{-0.5, 0.5}
	case ShapeSquareExtrusion:
		around = []float64{0.25, 0.75, 1.25, 1.75}
	default:
		divisions = max(divisions, 3)
		around = make([]float64, divisions)
		for i := range around {
			around[i] = 2 * float64(i) / float64(divisions)
		}
	}

	s := &primitive.Surface{}
	var ring []Vertex
	prevSide := [3]float64{}
	for i, v := range verts {
		tangent := tangentAt(verts, i)
		if norm(tangent) == 0 {
			return nil, generationError(id, "coincident points at %d", i)
		}
		side := sections[i].Side
		if norm(side) == 0 {
			side = prevSide
		}
		side = sub(side, scale(tangent, dot(side, tangent)))
		if norm(side) < 1e-12 {
			side = perpendicular(tangent)
		}
		side = normalize(side)
		prevSide = side
		up := cross(tangent, side)

		for _, a := range around {
			var offset, normal [3]float64
			if shape == ShapeRibbon {
				offset = scale(side, a*sections[i].Width)
				normal = up
			} else {
				c, sn := math.Cos(a*math.Pi), math.Sin(a*math.Pi)
				dir := add(scale(side, c), scale(up, sn))
				offset = add(scale(side, c*sections[i].Width/2), scale(up, sn*sections[i].Thickness/2))
				normal = dir
			}
			rv := v
			rv.Position = add(v.Position, offset)
			ring = append(ring, rv)
			s.Normals = append(s.Normals, vec3(normal))
		}
	}

	n := len(around)
	closed := shape != ShapeRibbon
	segs := n
	if !closed {
		segs = n - 1
	}
	for i := 0; i+1 < len(verts); i++ {
		for j := 0; j < segs; j++ {
			a := uint32(i*n + j)
			b := uint32(i*n + (j+1)%n)
			c := a + uint32(n)
			d := b + uint32(n)
			s.Indices = append(s.Indices, a, b, d, a, d, c)
		}
	}
	s.Header = header(id, time, ring)
	s.Points = positions(ring)
	s.TexCoords = texCoords(ring)
	return s, nil
}

func tangentAt(verts []Vertex, i int) [3]float64 {
	a, b := i-1, i+1
	if a < 0 {
		a = 0
	}
	if b >= len(verts) {
		b = len(verts) - 1
	}
	return normalize(sub(verts[b].Position, verts[a].Position))
}

// SegmentsToPolyline packs independent segments into one polyline batch.
func SegmentsToPolyline(id domain.ID, time float64, segs [][2]Vertex) *primitive.Polyline {
	verts := make([]Vertex, 0, 2*len(segs))
	for _, s := range segs {
		verts = append(verts, s[0], s[1])
	}
	return &primitive.Polyline{Header: header(id, time, verts), Points: positions(verts), Segments: true}
}
