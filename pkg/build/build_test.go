package build

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/fieldviz/pkg/changelog"
	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/geometry"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/invalidate"
	"github.com/chazu/fieldviz/pkg/primitive"
)

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func box(t *testing.T, counts [3]int) *domain.Region {
	t.Helper()
	size := [3]float64{float64(counts[0]), float64(counts[1]), float64(counts[2])}
	r, err := domain.NewBox(counts, size)
	require.NoError(t, err)
	return r
}

// scalarOf returns a one-component field computed from the position.
func scalarOf(name string, r *domain.Region, fn func(p field.Values) float64) field.Field {
	coords := field.NewCoordinates("coordinates", r)
	return field.NewFunc(name, 1, func(loc field.Location) (field.Values, error) {
		p, err := coords.Evaluate(loc)
		if err != nil {
			return nil, err
		}
		return field.Values{fn(p)}, nil
	})
}

func newGraphic(t *testing.T, k graphic.Kind, r *domain.Region) *graphic.Specification {
	t.Helper()
	s, err := graphic.New(k)
	require.NoError(t, err)
	require.NoError(t, s.SetCoordinateField(field.NewCoordinates("coordinates", r)))
	return s
}

func TestContourCrossesOneElement(t *testing.T) {
	r := box(t, [3]int{3, 1, 1})
	s := newGraphic(t, graphic.Contours, r)
	require.NoError(t, s.SetIsoscalarField(scalarOf("iso", r, func(p field.Values) float64 {
		return 2.5 + 5*p[0]/3
	})))
	require.NoError(t, s.SetIsovalueRange(3, 0, 10))

	rep, err := Build(&Context{Region: r, Log: quiet()}, s)
	require.NoError(t, err)
	assert.Equal(t, invalidate.FullRebuild, rep.Performed)
	assert.Equal(t, 3, rep.Entities)
	assert.Zero(t, rep.Skipped)
	assert.True(t, s.State().IsClean())

	store := s.Store()
	require.NotNil(t, store)
	assert.Equal(t, primitive.KindSurface, store.Kind())
	require.Equal(t, 1, store.Len())
	surf := store.Batches()[0].(*primitive.Surface)
	assert.Equal(t, domain.ID(2), surf.EntityID)
	require.NotEmpty(t, surf.Points)
	for _, p := range surf.Points {
		assert.InDelta(t, 1.5, p.X, 1e-4)
	}
}

func TestLinesRebuildAndRecompile(t *testing.T) {
	r := box(t, [3]int{3, 0, 0})
	s := newGraphic(t, graphic.Lines, r)
	ctx := &Context{Region: r, Log: quiet()}

	_, err := Build(ctx, s)
	require.NoError(t, err)
	first := s.Store()
	require.Equal(t, 3, first.Len())
	assert.Equal(t, primitive.KindPolyline, first.Kind())
	for i, b := range first.Batches() {
		assert.Equal(t, domain.ID(i+1), b.Meta().EntityID)
		assert.Len(t, b.Positions(), 2)
	}
	digest := first.Digest()

	// a forced full rebuild of unchanged inputs reproduces the primitives
	s.State().Request(invalidate.FullRebuild)
	_, err = Build(ctx, s)
	require.NoError(t, err)
	assert.NotSame(t, first, s.Store())
	assert.Equal(t, digest, s.Store().Digest())

	// appearance changes keep the geometry
	kept := s.Store()
	require.NoError(t, s.SetMaterial("gold"))
	rep, err := Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, invalidate.Recompile, rep.Performed)
	assert.Same(t, kept, s.Store())
	assert.Equal(t, "gold", kept.Appearance().Material)

	// visibility only redraws
	digest = kept.Digest()
	require.NoError(t, s.SetVisibility(false))
	rep, err = Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, invalidate.Redraw, rep.Performed)
	assert.Same(t, kept, s.Store())
	assert.Equal(t, digest, kept.Digest())

	require.NoError(t, s.SetTessellation([3]int{4, 1, 1}))
	rep, err = Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, invalidate.FullRebuild, rep.Performed)
	for _, b := range s.Store().Batches() {
		assert.Len(t, b.Positions(), 5)
	}

	// clean graphics are not rebuilt
	rep, err = Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, invalidate.Clean, rep.Performed)
}

func TestCoordinateFieldChangeMovesGeometry(t *testing.T) {
	r := box(t, [3]int{2, 2, 0})
	s := newGraphic(t, graphic.Surfaces, r)
	ctx := &Context{Region: r, Log: quiet()}

	_, err := Build(ctx, s)
	require.NoError(t, err)
	before := s.Store()
	digest, bounds := before.Digest(), before.Bounds()

	coords := field.NewCoordinates("coordinates", r)
	shifted := field.NewFunc("shifted", 3, func(loc field.Location) (field.Values, error) {
		p, err := coords.Evaluate(loc)
		if err != nil {
			return nil, err
		}
		return field.Values{p[0] + 10, p[1], p[2]}, nil
	})
	require.NoError(t, s.SetCoordinateField(shifted))
	assert.Equal(t, invalidate.FullRebuild, s.Severity())

	rep, err := Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, invalidate.FullRebuild, rep.Performed)
	after := s.Store()
	assert.Equal(t, before.Len(), after.Len())
	assert.NotEqual(t, digest, after.Digest())
	assert.InDelta(t, float64(bounds.Min.X)+10, float64(after.Bounds().Min.X), 1e-5)
	assert.InDelta(t, float64(bounds.Max.X)+10, float64(after.Bounds().Max.X), 1e-5)
}

func TestPartialRebuildFromChangeLog(t *testing.T) {
	r := box(t, [3]int{4, 4, 0})
	log := changelog.New()
	r.SetRecorder(log)
	s := newGraphic(t, graphic.Surfaces, r)
	ctx := &Context{Region: r, Log: quiet()}

	_, err := Build(ctx, s)
	require.NoError(t, err)
	require.Equal(t, 16, s.Store().Len())
	store := s.Store()

	log.Reset()
	require.NoError(t, r.SetNodePosition(1, [3]float64{-1, 0, 0}))
	dec := invalidate.Classify(s.Dependency(r), log, invalidate.DefaultPolicy())
	require.Equal(t, invalidate.PartialRebuild, dec.Severity)
	assert.Equal(t, []domain.ID{1}, dec.Scope)
	dec.Apply(s.State())

	rep, err := Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, invalidate.PartialRebuild, rep.Performed)
	assert.Equal(t, 1, rep.Entities)
	assert.Same(t, store, s.Store())
	require.Equal(t, 16, store.Len())

	moved := store.ForEntity(1)
	require.Len(t, moved, 1)
	p := moved[0].Positions()[0]
	assert.InDelta(t, -1.0, p.X, 1e-6)
	assert.InDelta(t, 0.0, p.Y, 1e-6)
}

func TestFilters(t *testing.T) {
	t.Run("subgroup", func(t *testing.T) {
		r := box(t, [3]int{2, 2, 0})
		g := domain.NewGroup("left")
		g.AddElement(2, 1)
		g.AddElement(2, 3)
		s := newGraphic(t, graphic.Surfaces, r)
		require.NoError(t, s.SetSubgroupField(field.NewGroup(g)))

		_, err := Build(&Context{Region: r, Log: quiet()}, s)
		require.NoError(t, err)
		assert.Equal(t, []domain.ID{1, 3}, s.Store().Entities())
	})

	t.Run("exterior faces", func(t *testing.T) {
		r := box(t, [3]int{2, 1, 1})
		s := newGraphic(t, graphic.Surfaces, r)
		require.NoError(t, s.SetExterior(true))

		_, err := Build(&Context{Region: r, Log: quiet()}, s)
		require.NoError(t, err)
		assert.Equal(t, 10, s.Store().Len())

		require.NoError(t, s.SetFace(domain.FaceXi3One))
		_, err = Build(&Context{Region: r, Log: quiet()}, s)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Store().Len())
	})

	t.Run("build filter", func(t *testing.T) {
		r := box(t, [3]int{1, 0, 0})
		s := newGraphic(t, graphic.Lines, r)
		ctx := &Context{Region: r, Log: quiet(), Filter: func(*graphic.Specification) bool { return false }}

		rep, err := Build(ctx, s)
		require.NoError(t, err)
		assert.True(t, rep.Filtered)
		assert.Nil(t, s.Store())
		assert.Equal(t, invalidate.FullRebuild, s.Severity())
	})
}

func TestSelection(t *testing.T) {
	r := box(t, [3]int{2, 2, 0})
	sel := domain.NewGroup("selection")
	sel.AddElement(2, 2)
	view, ok := field.AsGroup(field.NewGroup(sel))
	require.True(t, ok)
	ctx := &Context{Region: r, Log: quiet(), Selection: view}

	s := newGraphic(t, graphic.Surfaces, r)
	_, err := Build(ctx, s)
	require.NoError(t, err)
	store := s.Store()
	assert.True(t, store.Selected(2))
	assert.False(t, store.Selected(1))

	sel.AddElement(2, 4)
	s.SelectionChanged()
	rep, err := Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, invalidate.SelectionUpdate, rep.Performed)
	assert.Same(t, store, s.Store())
	assert.True(t, store.Selected(4))

	require.NoError(t, s.SetSelectMode(graphic.SelectDrawSelected))
	_, err = Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []domain.ID{2, 4}, s.Store().Entities())
	assert.False(t, s.Store().Selected(2))
}

func TestStreamlines(t *testing.T) {
	r := box(t, [3]int{3, 1, 0})
	ctx := &Context{Region: r, Log: quiet()}

	t.Run("no vector field", func(t *testing.T) {
		s := newGraphic(t, graphic.Streamlines, r)
		rep, err := Build(ctx, s)
		require.NoError(t, err)
		assert.Zero(t, s.Store().Len())
		assert.True(t, s.State().IsClean())
		require.NotEmpty(t, rep.Diagnostics)
		assert.Equal(t, graphic.LevelInfo, rep.Diagnostics[len(rep.Diagnostics)-1].Level)
	})

	t.Run("seed element", func(t *testing.T) {
		s := newGraphic(t, graphic.Streamlines, r)
		require.NoError(t, s.SetStreamVectorField(field.NewConstant("flow", 1, 0, 0)))
		require.NoError(t, s.SetSeedElement(1))
		require.NoError(t, s.SetStreamLength(1))
		require.NoError(t, s.SetStreamDataType(geometry.StreamDataTravelTime))

		rep, err := Build(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Entities)
		store := s.Store()
		assert.Equal(t, "@travel_time", store.DataSource())
		require.Equal(t, 1, store.Len())
		line := store.Batches()[0].(*primitive.Polyline)
		assert.Equal(t, domain.ID(1), line.EntityID)
		last := line.Points[len(line.Points)-1]
		assert.InDelta(t, 1.5, last.X, 1e-5)
		assert.InDelta(t, 0.5, last.Y, 1e-5)
		require.Len(t, line.Data, len(line.Points))
		assert.InDelta(t, 1.0, line.Data[len(line.Data)-1][0], 1e-5)
	})
}

func TestStreamlineSeedElementZero(t *testing.T) {
	r := domain.NewRegion()
	for i, p := range [][3]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {0, 1, 0}, {1, 1, 0}, {2, 1, 0}} {
		require.NoError(t, r.AddNode(domain.ID(i+1), p))
	}
	require.NoError(t, r.AddElement(domain.Entity{ID: 0, Dimension: 2, Nodes: []domain.ID{1, 2, 4, 5}}))
	require.NoError(t, r.AddElement(domain.Entity{ID: 1, Dimension: 2, Nodes: []domain.ID{2, 3, 5, 6}}))
	require.NoError(t, r.DefineFaces())
	ctx := &Context{Region: r, Log: quiet()}

	s := newGraphic(t, graphic.Streamlines, r)
	require.NoError(t, s.SetStreamVectorField(field.NewConstant("flow", 1, 0, 0)))
	require.NoError(t, s.SetSeedElement(0))

	_, err := Build(ctx, s)
	require.NoError(t, err)
	require.Equal(t, 1, s.Store().Len())
	assert.Equal(t, domain.ID(0), s.Store().Batches()[0].Meta().EntityID)

	require.NoError(t, s.ClearSeedElement())
	assert.Equal(t, invalidate.FullRebuild, s.Severity())
	_, err = Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Store().Len())
}

func TestPointsOnThePointDomain(t *testing.T) {
	r := box(t, [3]int{1, 1, 0})
	s, err := graphic.New(graphic.Points)
	require.NoError(t, err)

	rep, err := Build(&Context{Region: r, Log: quiet()}, s)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Entities)
	store := s.Store()
	require.Equal(t, 1, store.Len())
	gs := store.Batches()[0].(*primitive.GlyphSet)
	require.Len(t, gs.Points, 1)
	assert.Equal(t, float32(1), gs.Axes[0][0].X)
}

func TestSubgroupOnDatapoints(t *testing.T) {
	r := box(t, [3]int{1, 0, 0})
	for id := domain.ID(1); id <= 3; id++ {
		require.NoError(t, r.AddDatapoint(id, [3]float64{float64(id) / 4, 0, 0}))
	}
	probes := domain.NewGroup("probes")
	probes.AddDatapoint(2)
	probes.AddNode(1)

	s := newGraphic(t, graphic.Points, r)
	require.NoError(t, s.SetDomain(domain.KindDatapoints))
	require.NoError(t, s.SetSubgroupField(field.NewGroup(probes)))

	_, err := Build(&Context{Region: r, Log: quiet()}, s)
	require.NoError(t, err)
	assert.Equal(t, []domain.ID{2}, s.Store().Entities())
}

func TestPointLabels(t *testing.T) {
	r := box(t, [3]int{2, 2, 0})
	s := newGraphic(t, graphic.Points, r)
	require.NoError(t, s.SetDomain(domain.KindMesh2D))
	x := scalarOf("x", r, func(p field.Values) float64 { return p[0] })
	require.NoError(t, s.SetLabelField(x))
	require.NoError(t, s.SetLabelDensityField(scalarOf("density", r, func(p field.Values) float64 { return p[0] - 1 })))

	_, err := Build(&Context{Region: r, Log: quiet()}, s)
	require.NoError(t, err)
	store := s.Store()
	require.Equal(t, 4, store.Len())

	first := store.ForEntity(1)[0].(*primitive.GlyphSet)
	second := store.ForEntity(2)[0].(*primitive.GlyphSet)
	assert.Equal(t, []string{""}, first.Labels)
	assert.Equal(t, []string{"1.5"}, second.Labels)
}

func TestInvalidConfigurationKeepsSeverity(t *testing.T) {
	r := box(t, [3]int{1, 1, 1})
	s := newGraphic(t, graphic.Contours, r)

	rep, err := Build(&Context{Region: r, Log: quiet()}, s)
	var cfg *graphic.InvalidConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Nil(t, s.Store())
	assert.Equal(t, invalidate.FullRebuild, s.Severity())
	assert.NotEmpty(t, rep.Diagnostics)
	assert.NotEmpty(t, s.Diagnostics())
}

func TestBuildGuards(t *testing.T) {
	r := box(t, [3]int{1, 0, 0})
	s := newGraphic(t, graphic.Lines, r)

	_, err := Build(&Context{Log: quiet()}, s)
	assert.ErrorIs(t, err, ErrNoRegion)

	require.True(t, s.BeginBuild())
	_, err = Build(&Context{Region: r, Log: quiet()}, s)
	assert.ErrorIs(t, err, ErrBuildInProgress)
	s.EndBuild()

	_, err = Build(&Context{Region: r, Log: quiet()}, s)
	assert.NoError(t, err)
}

func TestEntityErrorsAreSkipped(t *testing.T) {
	r := box(t, [3]int{3, 0, 0})
	s := newGraphic(t, graphic.Lines, r)
	temp := field.NewNodal("temperature", 1)
	temp.SetNodeValue(1, 10)
	temp.SetNodeValue(2, 20)
	require.NoError(t, s.SetDataField(temp))

	rep, err := Build(&Context{Region: r, Log: quiet()}, s)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Entities)
	assert.Equal(t, 2, rep.Skipped)
	assert.Equal(t, 1, s.Store().Len())
	assert.ErrorIs(t, rep.Errors, field.ErrNotDefined)
	assert.True(t, s.State().IsClean())
}

func TestExtractedStoreRefreshesData(t *testing.T) {
	r := box(t, [3]int{3, 0, 0})
	ctx := &Context{Region: r, Log: quiet()}
	sib := newGraphic(t, graphic.Lines, r)
	require.NoError(t, sib.SetDataField(scalarOf("a", r, func(p field.Values) float64 { return p[0] })))
	_, err := Build(ctx, sib)
	require.NoError(t, err)
	store := sib.Store()

	target, err := graphic.New(graphic.Lines)
	require.NoError(t, err)
	require.NoError(t, graphic.Copy(target, sib))
	require.NoError(t, target.SetDataField(scalarOf("b", r, func(p field.Values) float64 { return 2 * p[0] })))
	require.True(t, graphic.ExtractPrimitivesFromSibling(target, []*graphic.Specification{sib}))

	rep, err := Build(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, invalidate.Recompile, rep.Performed)
	assert.Same(t, store, target.Store())
	assert.Equal(t, "b", store.DataSource())
	data := store.ForEntity(1)[0].Meta().Data
	require.Len(t, data, 2)
	assert.InDelta(t, 2.0, data[1][0], 1e-6)
}

func TestNotify(t *testing.T) {
	r := box(t, [3]int{2, 0, 0})
	s := newGraphic(t, graphic.Lines, r)
	var notified []*graphic.Specification
	ctx := &Context{Region: r, Log: quiet(), Notify: func(g *graphic.Specification) { notified = append(notified, g) }}

	_, err := Build(ctx, s)
	require.NoError(t, err)
	_, err = Build(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []*graphic.Specification{s}, notified)
}
