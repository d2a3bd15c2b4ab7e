package geometry

import (
	"math"

	"github.com/chazu/fieldviz/pkg/kernel"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// scalarAt interpolates per-vertex scalars of the grid at xi.
func (g *Grid) scalarAt(values []float64, xi [3]float64) float64 {
	var cell [3]int
	var t [3]float64
	for a := 0; a < 3; a++ {
		n := g.Divisions[a]
		if n == 0 {
			continue
		}
		s := math.Max(0, math.Min(1, xi[a])) * float64(n)
		c := min(int(math.Floor(s)), n-1)
		cell[a] = c
		t[a] = s - float64(c)
	}
	sum := 0.0
	for corner := 0; corner < 8; corner++ {
		w := 1.0
		var idx [3]int
		for a := 0; a < 3; a++ {
			bit := (corner >> a) & 1
			if g.Divisions[a] == 0 {
				if bit == 1 {
					w = 0
				}
				continue
			}
			idx[a] = cell[a] + bit
			if bit == 1 {
				w *= t[a]
			} else {
				w *= 1 - t[a]
			}
		}
		if w != 0 {
			sum += w * values[g.index(idx[0], idx[1], idx[2])]
		}
	}
	return sum
}

// IsoLines extracts the contours of per-vertex scalars over the lattice of
// a 2-D element with marching squares. Every isovalue contributes segments
// to the same batch; nil is returned when nothing crosses.
func IsoLines(time float64, g *Grid, scalars, isovalues []float64) (*primitive.Polyline, error) {
	id := g.Element.ID
	if g.Element.Dimension != 2 {
		return nil, generationError(id, "iso-lines need a 2-D element, got %d-D", g.Element.Dimension)
	}
	if len(scalars) != len(g.Vertices) {
		return nil, generationError(id, "got %d scalars for %d vertices", len(scalars), len(g.Vertices))
	}
	var segs [][2]Vertex
	n1, n2 := g.Divisions[0], g.Divisions[1]
	for _, iso := range isovalues {
		for j := 0; j < n2; j++ {
			for i := 0; i < n1; i++ {
				corners := [4]int{g.index(i, j, 0), g.index(i+1, j, 0), g.index(i+1, j+1, 0), g.index(i, j+1, 0)}
				segs = append(segs, squareSegments(g, scalars, corners, iso)...)
			}
		}
	}
	if len(segs) == 0 {
		return nil, nil
	}
	return SegmentsToPolyline(id, time, segs), nil
}

func squareSegments(g *Grid, scalars []float64, c [4]int, iso float64) [][2]Vertex {
	var cut [4]*Vertex
	crossings := 0
	for e := 0; e < 4; e++ {
		a, b := c[e], c[(e+1)%4]
		sa, sb := scalars[a], scalars[b]
		if (sa < iso) == (sb < iso) {
			continue
		}
		v := lerp(g.Vertices[a], g.Vertices[b], (iso-sa)/(sb-sa))
		cut[e] = &v
		crossings++
	}
	switch crossings {
	case 2:
		var pts []Vertex
		for _, v := range cut {
			if v != nil {
				pts = append(pts, *v)
			}
		}
		return [][2]Vertex{{pts[0], pts[1]}}
	case 4:
		centre := (scalars[c[0]] + scalars[c[1]] + scalars[c[2]] + scalars[c[3]]) / 4
		if (scalars[c[0]] >= iso) == (centre >= iso) {
			return [][2]Vertex{{*cut[0], *cut[1]}, {*cut[2], *cut[3]}}
		}
		return [][2]Vertex{{*cut[0], *cut[3]}, {*cut[1], *cut[2]}}
	default:
		return nil
	}
}

// IsoSurface extracts the iso-surfaces of per-vertex scalars over the
// lattice of a 3-D element. The kernel runs marching cubes in xi space
// and every vertex is then mapped through the grid. All isovalues share
// one batch; nil is returned when nothing crosses.
func IsoSurface(k kernel.Kernel, time float64, g *Grid, scalars, isovalues []float64, cells int) (*primitive.Surface, error) {
	id := g.Element.ID
	if g.Element.Dimension != 3 {
		return nil, generationError(id, "iso-surfaces need a 3-D element, got %d-D", g.Element.Dimension)
	}
	if len(scalars) != len(g.Vertices) {
		return nil, generationError(id, "got %d scalars for %d vertices", len(scalars), len(g.Vertices))
	}
	var out *primitive.Surface
	for _, iso := range isovalues {
		if !crosses(scalars, iso) {
			continue
		}
		f := func(xi [3]float64) float64 { return g.scalarAt(scalars, xi) - iso }
		mesh, err := k.IsoSurface(f, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, cells)
		if err != nil {
			return nil, generationError(id, "iso-surface %g: %v", iso, err)
		}
		if mesh.IsEmpty() {
			continue
		}
		verts := make([]Vertex, mesh.VertexCount())
		for i := range verts {
			p := mesh.Vertex(i)
			verts[i] = g.Interpolate([3]float64{float64(p[0]), float64(p[1]), float64(p[2])})
		}
		s := &primitive.Surface{
			Header:    header(id, time, verts),
			Points:    positions(verts),
			Indices:   append([]uint32(nil), mesh.Indices...),
			TexCoords: texCoords(verts),
		}
		s.Normals = vertexNormals(s.Points, s.Indices)
		if out == nil {
			out = s
			continue
		}
		MergeSurfaces(out, s)
	}
	return out, nil
}

// crosses reports whether iso lies within the range of the scalars.
func crosses(scalars []float64, iso float64) bool {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scalars {
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	return lo <= iso && iso <= hi
}
