package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/glyph"
	"github.com/chazu/fieldviz/pkg/kernel/sdfx"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// regionSpace positions points by interpolating node positions and
// returns a constant stream vector.
type regionSpace struct {
	r      *domain.Region
	vector [3]float64
}

func (s *regionSpace) Position(e domain.Entity, xi [3]float64) ([3]float64, error) {
	var out [3]float64
	for i, w := range domain.Weights(e.Shape, xi) {
		p, ok := s.r.NodePosition(e.Nodes[i])
		if !ok {
			return out, errors.New("missing node")
		}
		out = add(out, scale(p, w))
	}
	return out, nil
}

func (s *regionSpace) Vector(domain.Entity, [3]float64) ([3]float64, error) {
	return s.vector, nil
}

func (s *regionSpace) Neighbor(e domain.Entity, face int) (domain.Entity, int, bool) {
	return s.r.Neighbor(e, face)
}

func sampledGrid(t *testing.T, space *regionSpace, e domain.Entity, divisions [3]int) *Grid {
	t.Helper()
	g := NewGrid(e, divisions)
	for _, xi := range g.Lattice() {
		p, err := space.Position(e, xi)
		require.NoError(t, err)
		g.Vertices = append(g.Vertices, Vertex{Position: p, Data: []float64{p[0]}, Site: siteOf(e, xi)})
	}
	return g
}

func TestLineSegments(t *testing.T) {
	_, err := LineSegments(1, 0, []Vertex{{}})
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, domain.ID(1), ge.Entity)

	pl, err := LineSegments(2, 0.5, []Vertex{
		{Position: [3]float64{0, 0, 0}, Data: []float64{1}},
		{Position: [3]float64{1, 0, 0}, Data: []float64{2}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ID(2), pl.EntityID)
	assert.Equal(t, 0.5, pl.Time)
	assert.Len(t, pl.Points, 2)
	assert.Equal(t, [][]float32{{1}, {2}}, pl.Data)
	assert.False(t, pl.Segments)
}

func TestExtrusionCircle(t *testing.T) {
	verts := []Vertex{
		{Position: [3]float64{0, 0, 0}},
		{Position: [3]float64{1, 0, 0}},
		{Position: [3]float64{2, 0, 0}},
	}
	sections := []Section{{Width: 1, Thickness: 1}, {Width: 1, Thickness: 1}, {Width: 1, Thickness: 1}}
	s, err := Extrusion(1, 0, ShapeCircleExtrusion, verts, sections, 8)
	require.NoError(t, err)
	assert.Len(t, s.Points, 24)
	assert.Equal(t, 2*8*2, s.TriangleCount())
	for _, p := range s.Points {
		r := math.Hypot(float64(p.Y), float64(p.Z))
		assert.InDelta(t, 0.5, r, 1e-6)
	}

	ribbon, err := Extrusion(1, 0, ShapeRibbon, verts, sections, 0)
	require.NoError(t, err)
	assert.Len(t, ribbon.Points, 6)
	assert.Equal(t, 4, ribbon.TriangleCount())

	_, err = Extrusion(1, 0, ShapeLine, verts, sections, 8)
	assert.Error(t, err)
	_, err = Extrusion(1, 0, ShapeRibbon, verts, sections[:1], 8)
	assert.Error(t, err)
}

func TestElementSurface(t *testing.T) {
	r, err := domain.NewBox([3]int{1, 1, 0}, [3]float64{2, 2, 0})
	require.NoError(t, err)
	e, _ := r.Element(2, 1)
	g := sampledGrid(t, &regionSpace{r: r}, e, [3]int{2, 2, 0})

	s, err := ElementSurface(0, g)
	require.NoError(t, err)
	assert.Len(t, s.Points, 9)
	assert.Equal(t, 8, s.TriangleCount())
	for _, n := range s.Normals {
		assert.InDelta(t, 1, math.Abs(float64(n.Z)), 1e-6)
	}
	assert.Len(t, s.Sites, 9)
	assert.Equal(t, 2, s.Sites[0].Dimension)
}

func TestIsoLines(t *testing.T) {
	r, err := domain.NewBox([3]int{1, 1, 0}, [3]float64{1, 1, 0})
	require.NoError(t, err)
	e, _ := r.Element(2, 1)
	g := sampledGrid(t, &regionSpace{r: r}, e, [3]int{4, 4, 0})
	scalars := make([]float64, len(g.Vertices))
	for i, v := range g.Vertices {
		scalars[i] = v.Position[0] * 10
	}

	pl, err := IsoLines(0, g, scalars, []float64{3})
	require.NoError(t, err)
	require.NotNil(t, pl)
	assert.True(t, pl.Segments)
	assert.Len(t, pl.Points, 8)
	for _, p := range pl.Points {
		assert.InDelta(t, 0.3, float64(p.X), 1e-6)
	}

	pl, err = IsoLines(0, g, scalars, []float64{20})
	require.NoError(t, err)
	assert.Nil(t, pl)
}

func TestIsoSurfaceSpansIsovalue(t *testing.T) {
	r, err := domain.NewBox([3]int{1, 1, 1}, [3]float64{10, 1, 1})
	require.NoError(t, err)
	e, _ := r.Element(3, 1)
	g := sampledGrid(t, &regionSpace{r: r}, e, [3]int{2, 2, 2})
	scalars := make([]float64, len(g.Vertices))
	for i, v := range g.Vertices {
		scalars[i] = v.Position[0]
	}

	s, err := IsoSurface(sdfx.New(), 0, g, scalars, []float64{0, 5, 10}, 10)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, domain.ID(1), s.EntityID)
	found := false
	for _, p := range s.Points {
		assert.GreaterOrEqual(t, float64(p.X), -1e-6)
		assert.LessOrEqual(t, float64(p.X), 10+1e-6)
		if math.Abs(float64(p.X)-5) < 1e-3 {
			found = true
		}
	}
	assert.True(t, found, "no vertex on the iso-surface x = 5")

	s, err = IsoSurface(sdfx.New(), 0, g, scalars, []float64{20}, 10)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestDecimateSurface(t *testing.T) {
	s := &primitive.Surface{}
	tri := func(a, b, c [3]float64) {
		base := uint32(len(s.Points))
		for _, p := range [][3]float64{a, b, c} {
			s.Points = append(s.Points, vec3(p))
			s.Normals = append(s.Normals, vec3([3]float64{0, 0, 1}))
			s.Sites = append(s.Sites, primitive.Site{})
		}
		s.Indices = append(s.Indices, base, base+1, base+2)
	}
	tri([3]float64{0, 0, 0}, [3]float64{1, 0, 0}, [3]float64{0, 1, 0})
	tri([3]float64{1, 0, 0}, [3]float64{1, 1, 0}, [3]float64{0, 1, 0})
	tri([3]float64{0, 0, 0}, [3]float64{0.01, 0, 0}, [3]float64{0, 0.01, 0})

	DecimateSurface(s, 0)
	assert.Len(t, s.Points, 9)

	DecimateSurface(s, 0.1)
	assert.Len(t, s.Points, 4)
	assert.Equal(t, 2, s.TriangleCount())
	assert.Len(t, s.Sites, 4)
}

func TestGlyphAxes(t *testing.T) {
	tests := []struct {
		name        string
		orientation []float64
		signed      []float64
		wantLengths [3]float64
	}{
		{"no field", nil, nil, [3]float64{1, 1, 1}},
		{"scalar", []float64{2}, nil, [3]float64{5, 5, 5}},
		{"vector", []float64{0, 3, 0}, nil, [3]float64{7, 7, 7}},
		{"two vectors", []float64{1, 0, 0, 0, 2, 0}, nil, [3]float64{3, 5, 5}},
		{"signed", []float64{2}, []float64{-1}, [3]float64{5, 5, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			axes, err := GlyphAxes(tt.orientation, [3]float64{1, 1, 1}, [3]float64{2, 2, 2}, tt.signed)
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				assert.InDelta(t, tt.wantLengths[i], norm(axes[i]), 1e-9)
			}
		})
	}

	axes, err := GlyphAxes([]float64{0, 3, 0}, [3]float64{0, 0, 0}, [3]float64{1, 1, 1}, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 3, 0}, axes[0][:], 1e-9)

	signed, err := GlyphAxes(nil, [3]float64{1, 1, 1}, [3]float64{}, []float64{-1})
	require.NoError(t, err)
	assert.Equal(t, [3]float64{-1, 0, 0}, signed[0])

	_, err = GlyphAxes(make([]float64, 5), [3]float64{}, [3]float64{}, nil)
	assert.Error(t, err)
}

func TestGlyphSetRepeatAndLabels(t *testing.T) {
	unit := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	points := []GlyphPoint{
		{Vertex: Vertex{Position: [3]float64{1, 1, 1}}, Axes: unit, Label: "a"},
		{Vertex: Vertex{Position: [3]float64{2, 2, 2}}, Axes: unit, Label: "b"},
	}

	gs := GlyphSet(7, 0, points, glyph.RepeatMirror, [3]float64{0.5, 0, 0}, [3]float64{1, 0, 0}, true)
	assert.Len(t, gs.Points, 4)
	assert.Len(t, gs.Axes, 4)
	assert.Equal(t, []string{"a", "b"}, gs.Labels)
	assert.InDelta(t, 1.5, float64(gs.Points[0].X), 1e-6)
	assert.InDelta(t, 0.5, float64(gs.Points[1].X), 1e-6)
	assert.InDelta(t, 2.5, float64(gs.LabelPoints[0].X), 1e-6)

	plain := GlyphSet(7, 0, points, glyph.RepeatNone, [3]float64{}, [3]float64{}, false)
	assert.Len(t, plain.Points, 2)
	assert.Empty(t, plain.Labels)
}

func TestSamplePoints(t *testing.T) {
	assert.Len(t, SamplePoints(SampleCellCentres, 2, [3]int{2, 3, 0}, [3]float64{}, 0, 0), 6)
	assert.Len(t, SamplePoints(SampleCellCorners, 2, [3]int{2, 3, 0}, [3]float64{}, 0, 0), 12)
	assert.Equal(t, [][3]float64{{0.2, 0.3, 0}}, SamplePoints(SampleSetLocation, 2, [3]int{}, [3]float64{0.2, 0.3, 0}, 0, 0))

	a := SamplePoints(SampleCellPoisson, 3, [3]int{}, [3]float64{}, 5, 42)
	b := SamplePoints(SampleCellPoisson, 3, [3]int{}, [3]float64{}, 5, 42)
	assert.Equal(t, a, b)
	assert.Len(t, a, 5)

	assert.Equal(t, 3, PoissonCount(1.5, 2))
	assert.Equal(t, 0, PoissonCount(-1, 2))

	m, err := ParseSamplingMode("cell_corners")
	require.NoError(t, err)
	assert.Equal(t, SampleCellCorners, m)
}

func TestTraceCrossesElements(t *testing.T) {
	r, err := domain.NewBox([3]int{2, 1, 1}, [3]float64{2, 1, 1})
	require.NoError(t, err)
	space := &regionSpace{r: r, vector: [3]float64{1, 0, 0}}
	start, _ := r.Element(3, 1)

	points, err := Trace(space, start, domain.Centre(3), TraceParams{Length: 1})
	require.NoError(t, err)
	require.Greater(t, len(points), 2)
	last := points[len(points)-1]
	assert.InDeltaSlice(t, []float64{1.5, 0.5, 0.5}, last.Position[:], 1e-6)
	assert.Equal(t, domain.ID(2), last.Element.ID)
	assert.InDelta(t, 1.0, last.Time, 1e-6)
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].Position[0], points[i-1].Position[0])
	}
}

func TestTraceStopsAtBoundaryAndReverse(t *testing.T) {
	r, err := domain.NewBox([3]int{2, 1, 1}, [3]float64{2, 1, 1})
	require.NoError(t, err)
	space := &regionSpace{r: r, vector: [3]float64{1, 0, 0}}
	start, _ := r.Element(3, 1)

	points, err := Trace(space, start, domain.Centre(3), TraceParams{Length: 10})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, points[len(points)-1].Position[0], 1e-6)

	points, err = Trace(space, start, domain.Centre(3), TraceParams{Length: 10, Reverse: true})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, points[len(points)-1].Position[0], 1e-6)

	still := &regionSpace{r: r}
	points, err = Trace(still, start, domain.Centre(3), TraceParams{Length: 10})
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestParseNames(t *testing.T) {
	s, err := ParseLineShape("square_extrusion")
	require.NoError(t, err)
	assert.Equal(t, ShapeSquareExtrusion, s)
	assert.Equal(t, "square_extrusion", s.String())
	_, err = ParseLineShape("tube")
	assert.Error(t, err)

	d, err := ParseStreamDataType("travel_time")
	require.NoError(t, err)
	assert.Equal(t, StreamDataTravelTime, d)
}
