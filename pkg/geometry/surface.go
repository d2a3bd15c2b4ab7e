package geometry

import (
	"math"

	"cogentcore.org/core/math32"

	"github.com/chazu/fieldviz/pkg/primitive"
)

// ElementSurface triangulates the lattice of a 2-D element, two
// triangles per cell, with vertex normals averaged from adjacent faces.
func ElementSurface(time float64, g *Grid) (*primitive.Surface, error) {
	id := g.Element.ID
	if g.Element.Dimension != 2 {
		return nil, generationError(id, "surface needs a 2-D element, got %d-D", g.Element.Dimension)
	}
	n1, n2 := g.Divisions[0], g.Divisions[1]
	if len(g.Vertices) != (n1+1)*(n2+1) {
		return nil, generationError(id, "grid has %d vertices, want %d", len(g.Vertices), (n1+1)*(n2+1))
	}
	s := &primitive.Surface{
		Header:    header(id, time, g.Vertices),
		Points:    positions(g.Vertices),
		TexCoords: texCoords(g.Vertices),
	}
	for j := 0; j < n2; j++ {
		for i := 0; i < n1; i++ {
			a := uint32(g.index(i, j, 0))
			b := uint32(g.index(i+1, j, 0))
			c := uint32(g.index(i, j+1, 0))
			d := uint32(g.index(i+1, j+1, 0))
			s.Indices = append(s.Indices, a, b, d, a, d, c)
		}
	}
	s.Normals = vertexNormals(s.Points, s.Indices)
	return s, nil
}

// vertexNormals accumulates area-weighted face normals at each vertex.
func vertexNormals(points []math32.Vector3, indices []uint32) []math32.Vector3 {
	acc := make([][3]float64, len(points))
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		pa, pb, pc := fromVec3(points[a]), fromVec3(points[b]), fromVec3(points[c])
		n := cross(sub(pb, pa), sub(pc, pa))
		for _, i := range []uint32{a, b, c} {
			acc[i] = add(acc[i], n)
		}
	}
	out := make([]math32.Vector3, len(points))
	for i, n := range acc {
		out[i] = vec3(normalize(n))
	}
	return out
}

// NormalizeNormals rescales every non-zero normal to unit length and
// recomputes the normals when their count does not match the points.
func NormalizeNormals(s *primitive.Surface) {
	if len(s.Normals) != len(s.Points) {
		s.Normals = vertexNormals(s.Points, s.Indices)
		return
	}
	for i, n := range s.Normals {
		s.Normals[i] = vec3(normalize(fromVec3(n)))
	}
}

// DecimateSurface merges the vertices falling into the same cube of side
// threshold and drops the triangles that collapse. Merged vertices take
// the average position, normal and data of their cluster. A threshold of
// zero leaves the surface unchanged.
func DecimateSurface(s *primitive.Surface, threshold float64) {
	if threshold <= 0 || len(s.Points) == 0 {
		return
	}
	type key [3]int64
	cluster := make(map[key]int)
	remap := make([]uint32, len(s.Points))
	var sums [][3]float64
	var normals [][3]float64
	var data [][]float64
	var counts []int
	var first []int

	for i, p := range s.Points {
		q := fromVec3(p)
		k := key{
			int64(math.Floor(q[0] / threshold)),
			int64(math.Floor(q[1] / threshold)),
			int64(math.Floor(q[2] / threshold)),
		}
		c, ok := cluster[k]
		if !ok {
			c = len(sums)
			cluster[k] = c
			sums = append(sums, [3]float64{})
			normals = append(normals, [3]float64{})
			counts = append(counts, 0)
			first = append(first, i)
			if s.Data != nil {
				data = append(data, make([]float64, len(s.Data[i])))
			}
		}
		remap[i] = uint32(c)
		sums[c] = add(sums[c], q)
		if i < len(s.Normals) {
			normals[c] = add(normals[c], fromVec3(s.Normals[i]))
		}
		if s.Data != nil {
			for j, v := range s.Data[i] {
				if j < len(data[c]) {
					data[c][j] += float64(v)
				}
			}
		}
		counts[c]++
	}

	out := primitive.Surface{Header: primitive.Header{EntityID: s.EntityID, Time: s.Time}}
	for c := range sums {
		inv := 1 / float64(counts[c])
		out.Points = append(out.Points, vec3(scale(sums[c], inv)))
		out.Normals = append(out.Normals, vec3(normalize(normals[c])))
		if len(s.Sites) > first[c] {
			out.Sites = append(out.Sites, s.Sites[first[c]])
		}
		if s.TexCoords != nil {
			out.TexCoords = append(out.TexCoords, s.TexCoords[first[c]])
		}
		if s.Data != nil {
			d := make([]float32, len(data[c]))
			for j, v := range data[c] {
				d[j] = float32(v * inv)
			}
			out.Data = append(out.Data, d)
		}
	}
	for t := 0; t+2 < len(s.Indices); t += 3 {
		a, b, c := remap[s.Indices[t]], remap[s.Indices[t+1]], remap[s.Indices[t+2]]
		if a == b || b == c || a == c {
			continue
		}
		out.Indices = append(out.Indices, a, b, c)
	}
	*s = out
}

// MergeSurfaces appends the triangles of src to dst, offsetting indices.
func MergeSurfaces(dst, src *primitive.Surface) {
	base := uint32(len(dst.Points))
	dst.Points = append(dst.Points, src.Points...)
	dst.Normals = append(dst.Normals, src.Normals...)
	dst.Sites = append(dst.Sites, src.Sites...)
	if dst.Data != nil || len(dst.Points) == len(src.Points) {
		dst.Data = append(dst.Data, src.Data...)
	}
	if dst.TexCoords != nil || len(dst.Points) == len(src.Points) {
		dst.TexCoords = append(dst.TexCoords, src.TexCoords...)
	}
	for _, i := range src.Indices {
		dst.Indices = append(dst.Indices, base+i)
	}
}
