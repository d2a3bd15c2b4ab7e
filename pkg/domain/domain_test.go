package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	nodes      []ID
	elements   map[int][]ID
	renumbered bool
}

func newRecorder() *recorder {
	return &recorder{elements: make(map[int][]ID)}
}

func (r *recorder) NodeChanged(id ID) { r.nodes = append(r.nodes, id) }
func (r *recorder) ElementChanged(d int, id ID) {
	r.elements[d] = append(r.elements[d], id)
}
func (r *recorder) IdentifiersChanged() { r.renumbered = true }

func TestNewBoxCounts(t *testing.T) {
	r, err := NewBox([3]int{2, 1, 1}, [3]float64{2, 1, 1})
	require.NoError(t, err)

	assert.Equal(t, 3, r.HighestDimension())
	assert.Equal(t, 12, r.NodeCount())
	assert.Equal(t, 2, r.ElementCount(3))
	assert.Equal(t, 11, r.ElementCount(2))
	assert.Equal(t, 20, r.ElementCount(1))

	pos, ok := r.NodePosition(12)
	require.True(t, ok)
	assert.Equal(t, [3]float64{2, 1, 1}, pos)
}

func TestNewBoxLowerDimension(t *testing.T) {
	r, err := NewBox([3]int{3, 2, 0}, [3]float64{3, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, r.HighestDimension())
	assert.Equal(t, 6, r.ElementCount(2))
	assert.Equal(t, 17, r.ElementCount(1))

	_, err = NewBox([3]int{0, 0, 0}, [3]float64{})
	assert.Error(t, err)
}

func TestExteriorAndFaces(t *testing.T) {
	r, err := NewBox([3]int{2, 1, 1}, [3]float64{2, 1, 1})
	require.NoError(t, err)

	faces := Collect(r.Iterate(KindMesh2D))
	exterior, top := 0, 0
	for _, f := range faces {
		if r.IsExterior(f) {
			exterior++
		}
		if r.OnFace(f, FaceXi3One) {
			top++
		}
	}
	assert.Equal(t, 10, exterior)
	assert.Equal(t, 2, top)

	lines := Collect(r.Iterate(KindMesh1D))
	for _, l := range lines {
		// every edge of a one-element-thick box touches the boundary
		assert.True(t, r.IsExterior(l), "line %d", l.ID)
	}
}

func TestNeighbor(t *testing.T) {
	r, err := NewBox([3]int{2, 1, 1}, [3]float64{2, 1, 1})
	require.NoError(t, err)

	first, ok := r.Element(3, 1)
	require.True(t, ok)

	next, face, ok := r.Neighbor(first, 1)
	require.True(t, ok)
	assert.Equal(t, ID(2), next.ID)
	assert.Equal(t, 0, face)

	_, _, ok = r.Neighbor(first, 0)
	assert.False(t, ok)
}

func TestIterationOrderAndFilter(t *testing.T) {
	r, err := NewBox([3]int{3, 0, 0}, [3]float64{3, 0, 0})
	require.NoError(t, err)

	ids := func(es []Entity) []ID {
		var out []ID
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []ID{1, 2, 3}, ids(Collect(r.Iterate(KindMeshHighest))))
	assert.Equal(t, []ID{1, 2, 3, 4}, ids(Collect(r.Iterate(KindNodes))))
	assert.Equal(t, []ID{1, 3}, ids(Collect(r.IterateIDs(1, []ID{3, 1, 1, 9}))))

	odd := Filter(r.Iterate(KindMesh1D), func(e Entity) bool { return e.ID%2 == 1 })
	assert.Equal(t, []ID{1, 3}, ids(Collect(odd)))

	points := Collect(r.Iterate(KindPoint))
	require.Len(t, points, 1)
	assert.True(t, points[0].IsPoint())
}

func TestChangeRecording(t *testing.T) {
	r, err := NewBox([3]int{2, 0, 0}, [3]float64{2, 0, 0})
	require.NoError(t, err)
	rec := newRecorder()
	r.SetRecorder(rec)

	require.NoError(t, r.SetNodePosition(2, [3]float64{1, 0.5, 0}))
	assert.Equal(t, []ID{2}, rec.nodes)
	assert.ElementsMatch(t, []ID{1, 2}, rec.elements[1])

	require.NoError(t, r.RenumberNode(3, 30))
	assert.True(t, rec.renumbered)
	e, _ := r.Element(1, 2)
	assert.Equal(t, []ID{2, 30}, e.Nodes)

	assert.Error(t, r.SetNodePosition(99, [3]float64{}))
}

func TestElementsUsingNode(t *testing.T) {
	r, err := NewBox([3]int{3, 0, 0}, [3]float64{3, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, []ID{2, 3}, r.ElementsUsingNode(1, 3))
	assert.Equal(t, []ID{1}, r.ElementsUsingNode(1, 1))
	assert.Empty(t, r.ElementsUsingNode(2, 3))
	assert.Empty(t, r.ElementsUsingNode(0, 3))
}

func TestWeights(t *testing.T) {
	w := Weights(ShapeCube, [3]float64{0.25, 0.5, 1})
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 0.0, w[0], 1e-12)
	assert.InDelta(t, 0.75*0.5, w[4], 1e-12)

	corner := Weights(ShapeSquare, [3]float64{1, 1, 0})
	assert.Equal(t, []float64{0, 0, 0, 1}, corner)
}

func TestSampling(t *testing.T) {
	assert.Len(t, Lattice(2, [3]int{2, 3, 5}), 12)
	centres := CellCentres(1, [3]int{4, 0, 0})
	require.Len(t, centres, 4)
	assert.Equal(t, [3]float64{0.125, 0, 0}, centres[0])
}

func TestGroups(t *testing.T) {
	g := NewGroup("left")
	g.AddElement(3, 1)
	g.AddNode(4)
	assert.True(t, g.Contains(Entity{ID: 1, Dimension: 3}))
	assert.False(t, g.Contains(Entity{ID: 1, Dimension: 2}))
	assert.True(t, g.Contains(Entity{ID: 4, Dimension: 0}))
	assert.Equal(t, 1, g.Size(3))

	kind, err := ParseKind("mesh3d")
	require.NoError(t, err)
	assert.Equal(t, KindMesh3D, kind)
	_, err = ParseKind("volume")
	assert.Error(t, err)
}
