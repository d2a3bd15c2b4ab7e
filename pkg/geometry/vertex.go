// Package geometry holds the generators that turn sampled field values
// into primitive batches. Generators are pure: the build pipeline does the
// sampling and passes the results in.
package geometry

import (
	"fmt"
	"math"

	"cogentcore.org/core/math32"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// GenerationError reports geometry that could not be produced for one
// entity.
type GenerationError struct {
	Entity domain.ID
	Reason string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("geometry for entity %d: %s", e.Entity, e.Reason)
}

func generationError(id domain.ID, format string, args ...any) error {
	return &GenerationError{Entity: id, Reason: fmt.Sprintf(format, args...)}
}

// Vertex is one sampled location. Data and TexCoord are nil when the
// corresponding field is not set.
type Vertex struct {
	Position [3]float64
	Data     []float64
	TexCoord []float64
	Site     primitive.Site
}

// lerp blends a and b by t, including data and site coordinates.
func lerp(a, b Vertex, t float64) Vertex {
	out := Vertex{Site: a.Site}
	for k := 0; k < 3; k++ {
		out.Position[k] = a.Position[k] + t*(b.Position[k]-a.Position[k])
		out.Site.Xi[k] = a.Site.Xi[k] + t*(b.Site.Xi[k]-a.Site.Xi[k])
	}
	out.Data = lerpSlice(a.Data, b.Data, t)
	out.TexCoord = lerpSlice(a.TexCoord, b.TexCoord, t)
	return out
}

func lerpSlice(a, b []float64, t float64) []float64 {
	if a == nil || len(a) != len(b) {
		return nil
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + t*(b[i]-a[i])
	}
	return out
}

// Grid holds vertices sampled on the regular lattice of one element,
// xi1 varying fastest.
type Grid struct {
	Element   domain.Entity
	Divisions [3]int
	Vertices  []Vertex
}

// NewGrid returns an empty grid for element e. Divisions beyond the
// element's dimension are forced to zero and the rest to at least one.
func NewGrid(e domain.Entity, divisions [3]int) *Grid {
	g := &Grid{Element: e}
	for k := 0; k < 3; k++ {
		if k < e.Dimension {
			g.Divisions[k] = max(divisions[k], 1)
		}
	}
	return g
}

// Lattice returns the xi of every grid vertex in storage order.
func (g *Grid) Lattice() [][3]float64 {
	return domain.Lattice(g.Element.Dimension, g.Divisions)
}

func (g *Grid) index(i, j, k int) int {
	return i + (g.Divisions[0]+1)*(j+(g.Divisions[1]+1)*k)
}

// At returns the vertex at lattice position (i, j, k).
func (g *Grid) At(i, j, k int) Vertex {
	return g.Vertices[g.index(i, j, k)]
}

// Interpolate returns the multilinear interpolation of the grid at xi.
func (g *Grid) Interpolate(xi [3]float64) Vertex {
	var cell [3]int
	var t [3]float64
	for a := 0; a < 3; a++ {
		n := g.Divisions[a]
		if n == 0 {
			continue
		}
		s := math.Max(0, math.Min(1, xi[a])) * float64(n)
		c := int(math.Floor(s))
		if c >= n {
			c = n - 1
		}
		cell[a] = c
		t[a] = s - float64(c)
	}
	corner := func(di, dj, dk int) Vertex {
		i, j, k := cell[0]+di, cell[1]+dj, cell[2]+dk
		if g.Divisions[0] == 0 {
			i = 0
		}
		if g.Divisions[1] == 0 {
			j = 0
		}
		if g.Divisions[2] == 0 {
			k = 0
		}
		return g.At(i, j, k)
	}
	edge := func(dj, dk int) Vertex {
		return lerp(corner(0, dj, dk), corner(1, dj, dk), t[0])
	}
	face := func(dk int) Vertex {
		return lerp(edge(0, dk), edge(1, dk), t[1])
	}
	out := lerp(face(0), face(1), t[2])
	out.Site = primitive.Site{Dimension: g.Element.Dimension, Element: g.Element.ID, Xi: xi}
	return out
}

func vec3(p [3]float64) math32.Vector3 {
	return math32.Vec3(float32(p[0]), float32(p[1]), float32(p[2]))
}

func fromVec3(v math32.Vector3) [3]float64 {
	return [3]float64{float64(v.X), float64(v.Y), float64(v.Z)}
}

// header builds the batch header of a vertex sequence. Data is nil unless
// every vertex carries a value.
func header(id domain.ID, time float64, verts []Vertex) primitive.Header {
	h := primitive.Header{EntityID: id, Time: time, Sites: make([]primitive.Site, len(verts))}
	withData := len(verts) > 0
	for i, v := range verts {
		h.Sites[i] = v.Site
		if v.Data == nil {
			withData = false
		}
	}
	if withData {
		h.Data = make([][]float32, len(verts))
		for i, v := range verts {
			h.Data[i] = toFloat32(v.Data)
		}
	}
	return h
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func texCoords(verts []Vertex) []math32.Vector3 {
	if len(verts) == 0 || verts[0].TexCoord == nil {
		return nil
	}
	out := make([]math32.Vector3, len(verts))
	for i, v := range verts {
		var p [3]float64
		copy(p[:], v.TexCoord)
		out[i] = vec3(p)
	}
	return out
}

func positions(verts []Vertex) []math32.Vector3 {
	out := make([]math32.Vector3, len(verts))
	for i, v := range verts {
		out[i] = vec3(v.Position)
	}
	return out
}

func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func add(a, b [3]float64) [3]float64 { return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func scale(a [3]float64, s float64) [3]float64 {
	return [3]float64{a[0] * s, a[1] * s, a[2] * s}
}
func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func cross(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}
func norm(a [3]float64) float64 { return math.Sqrt(dot(a, a)) }

func normalize(a [3]float64) [3]float64 {
	n := norm(a)
	if n == 0 {
		return a
	}
	return scale(a, 1/n)
}

// perpendicular returns a unit vector orthogonal to a.
func perpendicular(a [3]float64) [3]float64 {
	ref := [3]float64{0, 0, 1}
	if math.Abs(normalize(a)[2]) > 0.9 {
		ref = [3]float64{1, 0, 0}
	}
	return normalize(cross(a, ref))
}
