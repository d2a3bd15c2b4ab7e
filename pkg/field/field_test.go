package field

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/fieldviz/pkg/domain"
)

// Compile-time interface checks.
var (
	_ Field = (*Constant)(nil)
	_ Field = (*Func)(nil)
	_ Field = (*Component)(nil)
	_ Field = (*Nodal)(nil)
	_ Field = (*Coordinates)(nil)
	_ Field = (*Group)(nil)
	_ Field = (*MeshLocation)(nil)
	_ Field = (*Expression)(nil)
)

func squareRegion(t *testing.T) *domain.Region {
	t.Helper()
	r, err := domain.NewBox([3]int{1, 1, 0}, [3]float64{2, 4, 0})
	require.NoError(t, err)
	return r
}

func TestCoordinatesInterpolate(t *testing.T) {
	r := squareRegion(t)
	coords := NewCoordinates("coordinates", r)
	e, ok := r.Element(2, 1)
	require.True(t, ok)

	v, err := coords.Evaluate(AtElement(e, [3]float64{0.5, 0.25, 0}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 0}, []float64(v), 1e-12)

	v, err = coords.Evaluate(AtNode(4))
	require.NoError(t, err)
	assert.Equal(t, Values{2, 4, 0}, v)

	_, err = coords.Evaluate(AtNode(99))
	assert.ErrorIs(t, err, ErrNotDefined)
	_, err = coords.Evaluate(AtPoint())
	assert.ErrorIs(t, err, ErrNotDefined)

	require.NoError(t, r.SetNodePosition(4, [3]float64{4, 4, 0}))
	v, err = coords.Evaluate(AtElement(e, [3]float64{1, 1, 0}))
	require.NoError(t, err)
	assert.Equal(t, Values{4, 4, 0}, v)
}

func TestNodalMissingNode(t *testing.T) {
	r := squareRegion(t)
	temp := NewNodal("temperature", 1)
	temp.SetNodeValue(1, 10)
	temp.SetNodeValue(2, 20)
	temp.SetNodeValue(3, 30)
	e, _ := r.Element(2, 1)

	_, err := temp.Evaluate(AtElement(e, domain.Centre(2)))
	var nd *NotDefinedError
	require.True(t, errors.As(err, &nd))
	assert.Equal(t, "temperature", nd.Field)

	temp.SetNodeValue(4, 40)
	v, err := temp.Evaluate(AtElement(e, domain.Centre(2)))
	require.NoError(t, err)
	assert.InDelta(t, 25.0, v[0], 1e-12)
}

func TestConstantComponentAndRC(t *testing.T) {
	c := NewConstant("offset", 1, 2)
	v, err := c.Evaluate(AtPoint())
	require.NoError(t, err)
	assert.Equal(t, Values{1, 2}, v)

	second, err := NewComponent(c, 1)
	require.NoError(t, err)
	assert.Equal(t, "offset.2", second.Name())
	v, err = second.Evaluate(AtPoint())
	require.NoError(t, err)
	assert.Equal(t, Values{2}, v)

	_, err = NewComponent(c, 2)
	assert.Error(t, err)

	rc := RectangularCartesian(c)
	assert.Equal(t, 3, rc.NumberOfComponents())
	v, err = rc.Evaluate(AtPoint())
	require.NoError(t, err)
	assert.Equal(t, Values{1, 2, 0}, v)

	three := NewConstant("xyz", 1, 2, 3)
	assert.Same(t, Field(three), RectangularCartesian(three))
}

func TestFuncComponentCheck(t *testing.T) {
	f := NewFunc("bad", 2, func(Location) (Values, error) { return Values{1}, nil })
	_, err := f.Evaluate(AtPoint())
	assert.ErrorIs(t, err, ErrNotDefined)
}

func TestGroupFieldAndCapabilities(t *testing.T) {
	g := domain.NewGroup("left")
	g.AddElement(2, 1)
	gf := NewGroup(g)

	view, ok := AsGroup(gf)
	require.True(t, ok)
	assert.Equal(t, 1, view.Size(2))

	_, ok = AsGroup(NewConstant("one", 1))
	assert.False(t, ok)

	in, err := EvaluateBoolean(gf, AtElement(domain.Entity{ID: 1, Dimension: 2}, domain.Centre(2)))
	require.NoError(t, err)
	assert.True(t, in)
	in, err = EvaluateBoolean(gf, AtElement(domain.Entity{ID: 2, Dimension: 2}, domain.Centre(2)))
	require.NoError(t, err)
	assert.False(t, in)

	in, err = EvaluateBoolean(NewConstant("zero", 0), AtPoint())
	require.NoError(t, err)
	assert.False(t, in)
}

func TestGroupDatapointMembership(t *testing.T) {
	g := domain.NewGroup("probes")
	g.AddDatapoint(2)
	g.AddNode(3)
	gf := NewGroup(g)

	in, err := EvaluateBoolean(gf, AtDatapoint(2))
	require.NoError(t, err)
	assert.True(t, in)
	in, err = EvaluateBoolean(gf, AtDatapoint(3))
	require.NoError(t, err)
	assert.False(t, in, "node membership does not extend to data points")

	v, err := gf.Evaluate(AtDatapoint(2))
	require.NoError(t, err)
	assert.Equal(t, Values{1}, v)

	g.Clear()
	in, err = EvaluateBoolean(gf, AtDatapoint(2))
	require.NoError(t, err)
	assert.False(t, in)
}

func TestMeshLocation(t *testing.T) {
	r := squareRegion(t)
	e, _ := r.Element(2, 1)
	seeds := NewMeshLocation("seed_location")
	seeds.Set(7, e, [3]float64{0.1, 0.2, 0})

	view, ok := AsMeshLocation(seeds)
	require.True(t, ok)
	got, xi, ok := view.Locate(7)
	require.True(t, ok)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, [3]float64{0.1, 0.2, 0}, xi)

	_, _, ok = view.Locate(8)
	assert.False(t, ok)
}

func TestExpressionField(t *testing.T) {
	r := squareRegion(t)
	coords := NewCoordinates("coordinates", r)
	speed := NewConstant("speed", 3)

	expr := NewExpression("potential", 1, "(+ (* x speed) y t)", coords)
	expr.Bind(speed)
	assert.Empty(t, expr.Check())

	v, err := expr.Evaluate(AtNode(4).WithTime(0.5))
	require.NoError(t, err)
	assert.InDelta(t, 2*3+4+0.5, v[0], 1e-12)

	expr.SetSource("(vec x y)")
	_, err = expr.Evaluate(AtNode(4))
	assert.ErrorIs(t, err, ErrNotDefined)
}

type definitions []string

func (d *definitions) FieldDefinitionChanged(name string) { *d = append(*d, name) }

type valueChanges struct {
	definitions
	nodes map[string][]domain.ID
}

func (v *valueChanges) FieldValueChanged(name string, node domain.ID) {
	if v.nodes == nil {
		v.nodes = make(map[string][]domain.ID)
	}
	v.nodes[name] = append(v.nodes[name], node)
}

func TestManagerForwardsNodeValueChanges(t *testing.T) {
	m := NewManager()
	temp := NewNodal("temperature", 1)
	temp.SetNodeValue(1, 10)
	require.NoError(t, m.Add(temp))

	var seen valueChanges
	m.SetRecorder(&seen)
	temp.SetNodeValue(2, 20)
	temp.SetNodeValue(2, 20)
	temp.SetNodeValue(1, 11)
	assert.Equal(t, map[string][]domain.ID{"temperature": {2, 1}}, seen.nodes)
	assert.Empty(t, seen.definitions)

	require.NoError(t, m.Remove("temperature"))
	temp.SetNodeValue(3, 30)
	assert.Len(t, seen.nodes["temperature"], 2)
}

func TestManager(t *testing.T) {
	m := NewManager()
	var seen definitions
	m.SetRecorder(&seen)

	temp := NewNodal("temperature", 1)
	require.NoError(t, m.Add(temp))
	require.Error(t, m.Add(NewNodal("temperature", 1)))
	require.NoError(t, m.Add(NewConstant("zero", 0)))
	assert.Equal(t, []string{"temperature", "zero"}, m.Names())

	require.NoError(t, m.Touch("temperature"))
	assert.Equal(t, definitions{"temperature"}, seen)
	assert.ErrorIs(t, m.Touch("pressure"), ErrNotFound)

	temp.Access()
	assert.ErrorIs(t, m.Remove("temperature"), ErrFieldInUse)
	temp.Deaccess()
	require.NoError(t, m.Remove("temperature"))
	_, err := m.Lookup("temperature")
	assert.ErrorIs(t, err, ErrNotFound)

	temp.Deaccess()
	assert.Equal(t, 0, temp.AccessCount())
}
