package scene

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/invalidate"
)

func newScene(t *testing.T) *Scene {
	t.Helper()
	return newSceneOver(t, [3]int{2, 2, 0})
}

func newSceneOver(t *testing.T, counts [3]int) *Scene {
	t.Helper()
	size := [3]float64{float64(counts[0]), float64(counts[1]), float64(counts[2])}
	r, err := domain.NewBox(counts, size)
	require.NoError(t, err)
	fields := field.NewManager()
	require.NoError(t, fields.Add(field.NewCoordinates(DefaultCoordinates, r)))

	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(r, fields, Options{Log: log})
}

func rebuild(t *testing.T, sc *Scene) map[string]invalidate.Severity {
	t.Helper()
	reports, err := sc.Rebuild()
	require.NoError(t, err)
	out := make(map[string]invalidate.Severity, len(reports))
	for _, rep := range reports {
		out[rep.Graphic] = rep.Performed
	}
	return out
}

func TestCreateUsesDefaultCoordinates(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	require.NotNil(t, s.CoordinateField())
	assert.Equal(t, DefaultCoordinates, s.CoordinateField().Name())

	_, err = sc.CreateSpecification(graphic.Lines, "skin")
	assert.ErrorIs(t, err, ErrDuplicateName)

	got, ok := sc.Lookup("skin")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, sc.Len())

	assert.Equal(t, map[string]invalidate.Severity{"skin": invalidate.FullRebuild}, rebuild(t, sc))
	assert.Equal(t, 4, sc.Primitives(s.ID()).Len())
}

func TestCommitMaterialReusesPrimitives(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	rebuild(t, sc)
	store := sc.Primitives(s.ID())
	require.NotNil(t, store)

	edit, err := sc.Edit(s.ID())
	require.NoError(t, err)
	again, err := sc.Edit(s.ID())
	require.NoError(t, err)
	assert.Same(t, edit, again)

	require.NoError(t, sc.SetAttribute(s.ID(), "material", cty.StringVal("gold")))
	assert.Equal(t, "gold", edit.Appearance().Material)
	assert.Equal(t, "default", s.Appearance().Material)

	var changed []*graphic.Specification
	sc.OnPrimitivesChanged(func(g *graphic.Specification) { changed = append(changed, g) })

	fresh, err := sc.Commit(s.ID())
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), fresh.ID())
	assert.Same(t, store, fresh.Store())
	assert.Nil(t, s.Store())
	assert.Equal(t, invalidate.Recompile, fresh.Severity())

	assert.Equal(t, map[string]invalidate.Severity{"skin": invalidate.Recompile}, rebuild(t, sc))
	assert.Same(t, store, sc.Primitives(fresh.ID()))
	assert.Equal(t, "gold", store.Appearance().Material)
	assert.Equal(t, []*graphic.Specification{fresh}, changed)
}

func TestCommitVisibilityOnlyRedraws(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	rebuild(t, sc)
	store := s.Store()

	_, err = sc.Edit(s.ID())
	require.NoError(t, err)
	require.NoError(t, sc.SetAttribute(s.ID(), "visibility", cty.False))
	hidden, err := sc.Commit(s.ID())
	require.NoError(t, err)
	assert.Same(t, store, hidden.Store())
	assert.Equal(t, invalidate.Redraw, hidden.Severity())
	assert.False(t, hidden.State().Pending(invalidate.Recompile))

	_, err = sc.Edit(hidden.ID())
	require.NoError(t, err)
	require.NoError(t, sc.SetAttribute(hidden.ID(), "visibility", cty.True))
	require.NoError(t, sc.SetAttribute(hidden.ID(), "name", cty.StringVal("shell")))
	shown, err := sc.Commit(hidden.ID())
	require.NoError(t, err)
	assert.Same(t, store, shown.Store())
	assert.Equal(t, invalidate.Redraw, shown.Severity())

	assert.Equal(t, map[string]invalidate.Severity{"shell": invalidate.Redraw}, rebuild(t, sc))
	assert.Same(t, store, shown.Store())
}

func TestCommitStructuralEdit(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	rebuild(t, sc)

	_, err = sc.Edit(s.ID())
	require.NoError(t, err)
	require.NoError(t, sc.SetAttribute(s.ID(), "tessellation", cty.NumberIntVal(2)))
	fresh, err := sc.Commit(s.ID())
	require.NoError(t, err)
	assert.Nil(t, fresh.Store())

	assert.Equal(t, map[string]invalidate.Severity{"skin": invalidate.FullRebuild}, rebuild(t, sc))
	assert.Equal(t, 4, fresh.Store().Len())
	assert.Len(t, fresh.Store().Batches()[0].Positions(), 9)
}

func TestCommitUnchangedAndRevert(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Lines, "edges")
	require.NoError(t, err)
	rebuild(t, sc)
	store := s.Store()

	_, err = sc.Edit(s.ID())
	require.NoError(t, err)
	got, err := sc.Commit(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Same(t, store, s.Store())
	assert.True(t, s.State().IsClean())

	_, err = sc.Commit(s.ID())
	assert.ErrorIs(t, err, ErrNoEdit)

	_, err = sc.Edit(s.ID())
	require.NoError(t, err)
	require.NoError(t, sc.SetAttribute(s.ID(), "line_width", cty.NumberIntVal(3)))
	assert.True(t, sc.Revert(s.ID()))
	assert.False(t, sc.Revert(s.ID()))
	assert.Equal(t, 1.0, s.Appearance().LineWidth)
}

func TestSetAttributeValidation(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Contours, "iso")
	require.NoError(t, err)

	err = sc.SetAttribute(s.ID(), "isoscalar_field", cty.StringVal("missing"))
	var verr *graphic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "isoscalar_field", verr.Attribute)

	err = sc.SetAttribute(s.ID(), "glyph", cty.StringVal("sphere"))
	assert.ErrorAs(t, err, &verr)
}

func TestRemove(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	rebuild(t, sc)

	var released []*graphic.Specification
	sc.OnPrimitivesChanged(func(g *graphic.Specification) { released = append(released, g) })
	require.NoError(t, sc.Remove(s.ID()))
	assert.Nil(t, sc.Primitives(s.ID()))
	assert.Zero(t, sc.Len())
	assert.Equal(t, []*graphic.Specification{s}, released)
	assert.ErrorIs(t, sc.Remove(s.ID()), ErrNotFound)

	coords, _ := sc.Fields().Get(DefaultCoordinates)
	assert.Zero(t, coords.AccessCount())
}

func TestRebuildClassifiesRegionChanges(t *testing.T) {
	sc := newSceneOver(t, [3]int{4, 4, 0})
	_, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	rebuild(t, sc)

	require.NoError(t, sc.Region().SetNodePosition(1, [3]float64{-0.5, 0, 0}))
	assert.Equal(t, map[string]invalidate.Severity{"skin": invalidate.PartialRebuild}, rebuild(t, sc))
	assert.Empty(t, rebuild(t, sc))
}

func TestRebuildClassifiesFieldChanges(t *testing.T) {
	sc := newScene(t)
	temp := field.NewNodal("temperature", 1)
	for id := domain.ID(1); id <= 9; id++ {
		temp.SetNodeValue(id, float64(id))
	}
	require.NoError(t, sc.Fields().Add(temp))

	hot, err := sc.CreateSpecification(graphic.Surfaces, "hot")
	require.NoError(t, err)
	require.NoError(t, sc.SetAttribute(hot.ID(), "data_field", cty.StringVal("temperature")))
	_, err = sc.CreateSpecification(graphic.Lines, "edges")
	require.NoError(t, err)
	rebuild(t, sc)

	require.NoError(t, sc.Fields().Touch("temperature"))
	assert.Equal(t, map[string]invalidate.Severity{"hot": invalidate.FullRebuild}, rebuild(t, sc))
}

func TestRebuildClassifiesNodeValueChanges(t *testing.T) {
	sc := newSceneOver(t, [3]int{4, 4, 0})
	temp := field.NewNodal("temperature", 1)
	for id := domain.ID(1); id <= 25; id++ {
		temp.SetNodeValue(id, float64(id))
	}
	require.NoError(t, sc.Fields().Add(temp))

	hot, err := sc.CreateSpecification(graphic.Surfaces, "hot")
	require.NoError(t, err)
	require.NoError(t, sc.SetAttribute(hot.ID(), "data_field", cty.StringVal("temperature")))
	_, err = sc.CreateSpecification(graphic.Lines, "edges")
	require.NoError(t, err)
	rebuild(t, sc)
	before := hot.Store().Digest()

	temp.SetNodeValue(1, 42)
	assert.Equal(t, map[string]invalidate.Severity{"hot": invalidate.PartialRebuild}, rebuild(t, sc))
	assert.NotEqual(t, before, hot.Store().Digest())
	assert.Equal(t, 16, hot.Store().Len())

	temp.SetNodeValue(1, 42)
	assert.Empty(t, rebuild(t, sc))
}

func TestRebuildContinuesPastInvalidGraphics(t *testing.T) {
	sc := newScene(t)
	bad, err := sc.CreateSpecification(graphic.Contours, "iso")
	require.NoError(t, err)
	good, err := sc.CreateSpecification(graphic.Lines, "edges")
	require.NoError(t, err)

	reports, err := sc.Rebuild()
	var cfg *graphic.InvalidConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.Len(t, reports, 2)
	assert.Nil(t, bad.Store())
	assert.Equal(t, invalidate.FullRebuild, bad.Severity())
	assert.NotEmpty(t, sc.Diagnostics(bad.ID()))
	require.NotNil(t, good.Store())
	assert.Equal(t, 12, good.Store().Len())
}

func TestInvisibleGraphicsAreNotBuilt(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	require.NoError(t, sc.SetAttribute(s.ID(), "visibility", cty.False))

	reports, err := sc.Rebuild()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Filtered)
	assert.Nil(t, s.Store())

	require.NoError(t, sc.SetAttribute(s.ID(), "visibility", cty.True))
	rebuild(t, sc)
	assert.NotNil(t, s.Store())
}

func TestSelection(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	rebuild(t, sc)

	sel := domain.NewGroup("picked")
	sel.AddElement(2, 3)
	sc.SetSelection(sel)
	assert.Equal(t, map[string]invalidate.Severity{"skin": invalidate.SelectionUpdate}, rebuild(t, sc))
	assert.True(t, s.Store().Selected(3))

	sc.SetSelection(nil)
	rebuild(t, sc)
	assert.False(t, s.Store().Selected(3))
}

func TestMoveAndTime(t *testing.T) {
	sc := newScene(t)
	a, err := sc.CreateSpecification(graphic.Surfaces, "a")
	require.NoError(t, err)
	b, err := sc.CreateSpecification(graphic.Lines, "b")
	require.NoError(t, err)
	rebuild(t, sc)

	require.NoError(t, sc.Move(b.ID(), 0))
	assert.Equal(t, []*graphic.Specification{b, a}, sc.Graphics())
	assert.Error(t, sc.Move(b.ID(), 2))

	sc.SetTime(1)
	assert.Equal(t, map[string]invalidate.Severity{"a": invalidate.FullRebuild, "b": invalidate.FullRebuild}, rebuild(t, sc))
	assert.Equal(t, 1.0, a.Store().Batches()[0].Meta().Time)
}

func TestDetachFields(t *testing.T) {
	sc := newScene(t)
	s, err := sc.CreateSpecification(graphic.Surfaces, "skin")
	require.NoError(t, err)
	_, err = sc.Edit(s.ID())
	require.NoError(t, err)

	coords, _ := sc.Fields().Get(DefaultCoordinates)
	assert.Equal(t, 2, coords.AccessCount())
	assert.ErrorIs(t, sc.Fields().Remove(DefaultCoordinates), field.ErrFieldInUse)

	sc.DetachFields()
	assert.Zero(t, coords.AccessCount())
	assert.NoError(t, sc.Fields().Remove(DefaultCoordinates))
	sc.Close()
	assert.Zero(t, sc.Len())
}
