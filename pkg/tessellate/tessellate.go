// Package tessellate flattens the primitive store of a graphic into the
// flat triangle, line and point meshes a renderer uploads. Batches of
// selected entities go to a separate mesh so they can be drawn with the
// selected material.
package tessellate

import (
	"fmt"

	"cogentcore.org/core/math32"

	"github.com/chazu/fieldviz/pkg/glyph"
	"github.com/chazu/fieldviz/pkg/kernel"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// Mode is how the indices of a mesh are assembled.
type Mode int

const (
	ModeTriangles Mode = iota
	ModeLines
	ModePoints
)

func (m Mode) String() string {
	switch m {
	case ModeTriangles:
		return "triangles"
	case ModeLines:
		return "lines"
	case ModePoints:
		return "points"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Label is a text label anchored at a point.
type Label struct {
	Text     string
	Position [3]float32
}

// Mesh is one drawable mesh. Normals are set for triangle meshes only.
// Values holds the first data component per vertex and is nil when the
// store has no data field.
type Mesh struct {
	kernel.Mesh
	Mode     Mode
	Values   []float32
	Labels   []Label
	Selected bool
}

// IsEmpty reports whether the mesh has neither geometry nor labels.
func (m *Mesh) IsEmpty() bool {
	return m.Mesh.IsEmpty() && len(m.Labels) == 0
}

// Tessellate converts st into at most two meshes: the unselected batches
// first, then the selected ones. Glyph sets are expanded through glyphs.
// A nil or empty store yields no meshes.
func Tessellate(name string, st *primitive.Store, glyphs *glyph.Library) ([]*Mesh, error) {
	if st == nil || st.Len() == 0 {
		return nil, nil
	}
	mode, g, err := modeOf(st, glyphs)
	if err != nil {
		return nil, fmt.Errorf("tessellate: %s: %w", name, err)
	}
	withData := st.DataSource() != ""

	plain := newBuilder(name, mode, withData, false)
	selected := newBuilder(name, mode, withData, true)
	for _, b := range st.Batches() {
		target := plain
		if st.Selected(b.Meta().EntityID) {
			target = selected
		}
		switch batch := b.(type) {
		case *primitive.Polyline:
			target.polyline(batch)
		case *primitive.Surface:
			target.surface(batch)
		case *primitive.GlyphSet:
			target.glyphSet(batch, g)
		default:
			return nil, fmt.Errorf("tessellate: %s: unsupported batch type %T", name, b)
		}
	}

	var meshes []*Mesh
	for _, b := range []*builder{plain, selected} {
		if !b.mesh.IsEmpty() {
			meshes = append(meshes, b.mesh)
		}
	}
	return meshes, nil
}

// modeOf picks the mesh mode for a store and, for glyph sets, resolves the
// glyph drawn at each point.
func modeOf(st *primitive.Store, glyphs *glyph.Library) (Mode, *glyph.Glyph, error) {
	a := st.Appearance()
	switch st.Kind() {
	case primitive.KindPolyline:
		return ModeLines, nil, nil
	case primitive.KindSurface:
		if a.RenderStyle == "wireframe" || a.PolygonMode == "wireframe" {
			return ModeLines, nil, nil
		}
		return ModeTriangles, nil, nil
	case primitive.KindGlyphSet:
		if a.Glyph == "" || glyphs == nil {
			return ModePoints, nil, nil
		}
		g, err := glyphs.Get(a.Glyph)
		if err != nil {
			return ModePoints, nil, err
		}
		switch {
		case g.Mesh != nil && !g.Mesh.IsEmpty():
			return ModeTriangles, g, nil
		case len(g.Segments) > 0:
			return ModeLines, g, nil
		}
		return ModePoints, g, nil
	}
	return ModePoints, nil, fmt.Errorf("unknown store kind %v", st.Kind())
}

type builder struct {
	mesh     *Mesh
	withData bool
}

func newBuilder(name string, mode Mode, withData, selected bool) *builder {
	m := &Mesh{Mode: mode, Selected: selected}
	m.Name = name
	if selected {
		m.Name = name + ":selected"
	}
	return &builder{mesh: m, withData: withData}
}

// vertex appends one vertex and returns its index.
func (b *builder) vertex(p math32.Vector3, value float32) uint32 {
	i := uint32(len(b.mesh.Vertices) / 3)
	b.mesh.Vertices = append(b.mesh.Vertices, p.X, p.Y, p.Z)
	if b.withData {
		b.mesh.Values = append(b.mesh.Values, value)
	}
	return i
}

func (b *builder) normal(n math32.Vector3) {
	b.mesh.Normals = append(b.mesh.Normals, n.X, n.Y, n.Z)
}

// value returns the first data component of vertex i of a batch, or zero.
func value(h *primitive.Header, i int) float32 {
	if i < len(h.Data) && len(h.Data[i]) > 0 {
		return h.Data[i][0]
	}
	return 0
}

func (b *builder) polyline(p *primitive.Polyline) {
	if len(p.Points) < 2 {
		return
	}
	base := uint32(len(b.mesh.Vertices) / 3)
	for i, pt := range p.Points {
		b.vertex(pt, value(&p.Header, i))
	}
	if p.Segments {
		for i := 0; i+1 < len(p.Points); i += 2 {
			b.mesh.Indices = append(b.mesh.Indices, base+uint32(i), base+uint32(i+1))
		}
		return
	}
	for i := 0; i+1 < len(p.Points); i++ {
		b.mesh.Indices = append(b.mesh.Indices, base+uint32(i), base+uint32(i+1))
	}
}

func (b *builder) surface(s *primitive.Surface) {
	base := uint32(len(b.mesh.Vertices) / 3)
	for i, pt := range s.Points {
		b.vertex(pt, value(&s.Header, i))
	}
	if b.mesh.Mode == ModeLines {
		for t := 0; t+2 < len(s.Indices); t += 3 {
			a, c, d := base+s.Indices[t], base+s.Indices[t+1], base+s.Indices[t+2]
			b.mesh.Indices = append(b.mesh.Indices, a, c, c, d, d, a)
		}
		return
	}
	normals := s.Normals
	if len(normals) != len(s.Points) {
		normals = vertexNormals(s.Points, s.Indices)
	}
	for _, n := range normals {
		b.normal(n)
	}
	for _, idx := range s.Indices {
		b.mesh.Indices = append(b.mesh.Indices, base+idx)
	}
}

// vertexNormals averages the face normals around each vertex.
func vertexNormals(points []math32.Vector3, indices []uint32) []math32.Vector3 {
	normals := make([]math32.Vector3, len(points))
	for t := 0; t+2 < len(indices); t += 3 {
		a, c, d := indices[t], indices[t+1], indices[t+2]
		n := math32.Normal(points[a], points[c], points[d])
		normals[a] = normals[a].Add(n)
		normals[c] = normals[c].Add(n)
		normals[d] = normals[d].Add(n)
	}
	for i, n := range normals {
		if l := n.Length(); l > 0 {
			normals[i] = n.MulScalar(1 / l)
		}
	}
	return normals
}

// place maps a unit glyph point into the frame of one glyph.
func place(origin math32.Vector3, axes [3]math32.Vector3, v [3]float32) math32.Vector3 {
	return origin.
		Add(axes[0].MulScalar(v[0])).
		Add(axes[1].MulScalar(v[1])).
		Add(axes[2].MulScalar(v[2]))
}

func (b *builder) glyphSet(gs *primitive.GlyphSet, g *glyph.Glyph) {
	for i, pt := range gs.Points {
		val := value(&gs.Header, i)
		var axes [3]math32.Vector3
		if i < len(gs.Axes) {
			axes = gs.Axes[i]
		}
		switch b.mesh.Mode {
		case ModeTriangles:
			b.glyphMesh(pt, axes, g.Mesh, val)
		case ModeLines:
			for _, seg := range g.Segments {
				a := b.vertex(place(pt, axes, seg[0]), val)
				c := b.vertex(place(pt, axes, seg[1]), val)
				b.mesh.Indices = append(b.mesh.Indices, a, c)
			}
		default:
			b.mesh.Indices = append(b.mesh.Indices, b.vertex(pt, val))
		}
	}
	for i, text := range gs.Labels {
		if text == "" || i >= len(gs.LabelPoints) {
			continue
		}
		p := gs.LabelPoints[i]
		b.mesh.Labels = append(b.mesh.Labels, Label{Text: text, Position: [3]float32{p.X, p.Y, p.Z}})
	}
}

func (b *builder) glyphMesh(origin math32.Vector3, axes [3]math32.Vector3, m *kernel.Mesh, val float32) {
	base := uint32(len(b.mesh.Vertices) / 3)
	placed := make([]math32.Vector3, m.VertexCount())
	for i := range placed {
		placed[i] = place(origin, axes, m.Vertex(i))
		b.vertex(placed[i], val)
	}
	for _, n := range vertexNormals(placed, m.Indices) {
		b.normal(n)
	}
	for _, idx := range m.Indices {
		b.mesh.Indices = append(b.mesh.Indices, base+idx)
	}
}
