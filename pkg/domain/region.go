package domain

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// ChangeRecorder receives notifications of region mutations. The change
// log implements it; a nil recorder discards changes.
type ChangeRecorder interface {
	NodeChanged(id ID)
	ElementChanged(dimension int, id ID)
	IdentifiersChanged()
}

// faceRef links an element to one face of a parent element.
type faceRef struct {
	parent ID
	face   int
}

type adjacency map[string][]faceRef

// Region owns the nodes, data points, elements and groups of one model.
// It is not safe for concurrent mutation.
type Region struct {
	nodes      map[ID][3]float64
	datapoints map[ID][3]float64
	elements   [4]map[ID]Entity
	parents    [4]map[ID][]faceRef
	adjacent   [4]adjacency
	groups     map[string]*Group
	recorder   ChangeRecorder
}

// NewRegion returns an empty region.
func NewRegion() *Region {
	r := &Region{
		nodes:      make(map[ID][3]float64),
		datapoints: make(map[ID][3]float64),
		groups:     make(map[string]*Group),
	}
	for d := 1; d <= 3; d++ {
		r.elements[d] = make(map[ID]Entity)
		r.parents[d] = make(map[ID][]faceRef)
	}
	return r
}

// SetRecorder attaches the change recorder notified of later mutations.
func (r *Region) SetRecorder(c ChangeRecorder) {
	r.recorder = c
}

func (r *Region) nodeChanged(id ID) {
	if r.recorder == nil {
		return
	}
	r.recorder.NodeChanged(id)
	for d := 1; d <= 3; d++ {
		for _, e := range r.ElementsUsingNode(d, id) {
			r.recorder.ElementChanged(d, e)
		}
	}
}

// ElementsUsingNode returns the sorted identifiers of the elements of
// dimension d whose connectivity includes node.
func (r *Region) ElementsUsingNode(d int, node ID) []ID {
	if d < 1 || d > 3 {
		return nil
	}
	var out []ID
	for _, e := range r.elements[d] {
		if slices.Contains(e.Nodes, node) {
			out = append(out, e.ID)
		}
	}
	slices.Sort(out)
	return out
}

func (r *Region) elementChanged(d int, id ID) {
	if r.recorder != nil {
		r.recorder.ElementChanged(d, id)
	}
}

// ---------------------------------------------------------------------------
// Nodes and data points
// ---------------------------------------------------------------------------

// AddNode defines a node at pos.
func (r *Region) AddNode(id ID, pos [3]float64) error {
	if _, ok := r.nodes[id]; ok {
		return fmt.Errorf("domain: node %d already exists", id)
	}
	r.nodes[id] = pos
	r.nodeChanged(id)
	return nil
}

// AddDatapoint defines a data point at pos.
func (r *Region) AddDatapoint(id ID, pos [3]float64) error {
	if _, ok := r.datapoints[id]; ok {
		return fmt.Errorf("domain: data point %d already exists", id)
	}
	r.datapoints[id] = pos
	return nil
}

// NodePosition returns the stored position of a node.
func (r *Region) NodePosition(id ID) ([3]float64, bool) {
	p, ok := r.nodes[id]
	return p, ok
}

// DatapointPosition returns the stored position of a data point.
func (r *Region) DatapointPosition(id ID) ([3]float64, bool) {
	p, ok := r.datapoints[id]
	return p, ok
}

// SetNodePosition moves a node. The node and every element using it are
// recorded as changed.
func (r *Region) SetNodePosition(id ID, pos [3]float64) error {
	old, ok := r.nodes[id]
	if !ok {
		return fmt.Errorf("domain: no node %d", id)
	}
	if old == pos {
		return nil
	}
	r.nodes[id] = pos
	r.nodeChanged(id)
	return nil
}

// RenumberNode changes a node's identifier, updating element connectivity.
func (r *Region) RenumberNode(from, to ID) error {
	pos, ok := r.nodes[from]
	if !ok {
		return fmt.Errorf("domain: no node %d", from)
	}
	if _, taken := r.nodes[to]; taken {
		return fmt.Errorf("domain: node %d already exists", to)
	}
	delete(r.nodes, from)
	r.nodes[to] = pos
	for d := 1; d <= 3; d++ {
		for id, e := range r.elements[d] {
			for i, n := range e.Nodes {
				if n == from {
					e.Nodes[i] = to
				}
			}
			r.elements[d][id] = e
		}
		r.adjacent[d] = nil
	}
	for _, g := range r.groups {
		if g.ContainsNode(from) {
			g.RemoveNode(from)
			g.AddNode(to)
		}
	}
	if r.recorder != nil {
		r.recorder.IdentifiersChanged()
	}
	return nil
}

// NodeCount returns the number of nodes.
func (r *Region) NodeCount() int {
	return len(r.nodes)
}

// ---------------------------------------------------------------------------
// Elements
// ---------------------------------------------------------------------------

// AddElement defines an element. Its shape is derived from its dimension
// and every node it references must exist.
func (r *Region) AddElement(e Entity) error {
	if e.Dimension < 1 || e.Dimension > 3 {
		return fmt.Errorf("domain: element %d: invalid dimension %d", e.ID, e.Dimension)
	}
	e.Shape = ShapeForDimension(e.Dimension)
	if len(e.Nodes) != e.Shape.NodeCount() {
		return fmt.Errorf("domain: element %d: %s needs %d nodes, got %d",
			e.ID, e.Shape, e.Shape.NodeCount(), len(e.Nodes))
	}
	if _, ok := r.elements[e.Dimension][e.ID]; ok {
		return fmt.Errorf("domain: %d-D element %d already exists", e.Dimension, e.ID)
	}
	for _, n := range e.Nodes {
		if _, ok := r.nodes[n]; !ok {
			return fmt.Errorf("domain: element %d references missing node %d", e.ID, n)
		}
	}
	e.Nodes = append([]ID(nil), e.Nodes...)
	r.elements[e.Dimension][e.ID] = e
	r.adjacent[e.Dimension] = nil
	r.elementChanged(e.Dimension, e.ID)
	return nil
}

// RemoveElement deletes an element and its face links.
func (r *Region) RemoveElement(dimension int, id ID) error {
	if dimension < 1 || dimension > 3 {
		return fmt.Errorf("domain: invalid dimension %d", dimension)
	}
	if _, ok := r.elements[dimension][id]; !ok {
		return fmt.Errorf("domain: no %d-D element %d", dimension, id)
	}
	delete(r.elements[dimension], id)
	delete(r.parents[dimension], id)
	if dimension > 1 {
		for child, refs := range r.parents[dimension-1] {
			kept := refs[:0]
			for _, ref := range refs {
				if ref.parent != id {
					kept = append(kept, ref)
				}
			}
			r.parents[dimension-1][child] = kept
		}
	}
	for _, g := range r.groups {
		g.RemoveElement(dimension, id)
	}
	r.adjacent[dimension] = nil
	r.elementChanged(dimension, id)
	return nil
}

// Element returns the element with the given dimension and identifier.
func (r *Region) Element(dimension int, id ID) (Entity, bool) {
	if dimension < 1 || dimension > 3 {
		return Entity{}, false
	}
	e, ok := r.elements[dimension][id]
	return e, ok
}

// ElementCount returns the number of elements of a dimension.
func (r *Region) ElementCount(dimension int) int {
	if dimension < 1 || dimension > 3 {
		return 0
	}
	return len(r.elements[dimension])
}

// HighestDimension returns the largest dimension holding elements, or zero.
func (r *Region) HighestDimension() int {
	for d := 3; d >= 1; d-- {
		if len(r.elements[d]) > 0 {
			return d
		}
	}
	return 0
}

// Dimension resolves the element dimension iterated for a domain kind.
// Nodes, data points and the point domain report zero.
func (r *Region) Dimension(k Kind) int {
	if k == KindMeshHighest {
		return r.HighestDimension()
	}
	return k.FixedDimension()
}

// ---------------------------------------------------------------------------
// Faces
// ---------------------------------------------------------------------------

func faceKey(nodes []ID) string {
	sorted := append([]ID(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = strconv.Itoa(int(n))
	}
	return strings.Join(parts, ",")
}

// DefineFaces creates the missing lower-dimensional face elements of every
// element of dimension two or more and links them to their parents. New
// face identifiers continue after the largest existing identifier.
func (r *Region) DefineFaces() error {
	for d := r.HighestDimension(); d >= 2; d-- {
		existing := make(map[string]ID)
		next := ID(1)
		for id, f := range r.elements[d-1] {
			existing[faceKey(f.Nodes)] = id
			if id >= next {
				next = id + 1
			}
		}
		for _, parent := range r.sortedElements(d) {
			for f := 0; f < parent.Shape.FaceCount(); f++ {
				nodes := FaceNodes(parent, f)
				key := faceKey(nodes)
				faceID, ok := existing[key]
				if !ok {
					faceID = next
					next++
					if err := r.AddElement(Entity{ID: faceID, Dimension: d - 1, Nodes: nodes}); err != nil {
						return err
					}
					existing[key] = faceID
				}
				if !r.hasParent(d-1, faceID, parent.ID, f) {
					r.parents[d-1][faceID] = append(r.parents[d-1][faceID], faceRef{parent: parent.ID, face: f})
				}
			}
		}
	}
	return nil
}

func (r *Region) hasParent(d int, id, parent ID, face int) bool {
	for _, ref := range r.parents[d][id] {
		if ref.parent == parent && ref.face == face {
			return true
		}
	}
	return false
}

// IsExterior reports whether a face element lies on the boundary of the
// highest-dimensional mesh. Top-level elements are always exterior.
func (r *Region) IsExterior(e Entity) bool {
	top := r.HighestDimension()
	if e.Dimension >= top || e.Dimension < 1 {
		return true
	}
	refs := r.parents[e.Dimension][e.ID]
	if e.Dimension+1 == top {
		return len(refs) == 1
	}
	for _, ref := range refs {
		parent, ok := r.elements[e.Dimension+1][ref.parent]
		if ok && r.IsExterior(parent) {
			return true
		}
	}
	return false
}

// OnFace reports whether a face element lies on face f of a top-level
// element.
func (r *Region) OnFace(e Entity, f FaceType) bool {
	if f == FaceAll {
		return true
	}
	top := r.HighestDimension()
	if e.Dimension >= top || e.Dimension < 1 {
		return false
	}
	for _, ref := range r.parents[e.Dimension][e.ID] {
		if e.Dimension+1 == top {
			if ref.face == int(f)-1 {
				return true
			}
			continue
		}
		parent, ok := r.elements[e.Dimension+1][ref.parent]
		if ok && r.OnFace(parent, f) {
			return true
		}
	}
	return false
}

// Neighbor returns the element sharing face f with e, and the local index
// of that face within the neighbour.
func (r *Region) Neighbor(e Entity, f int) (Entity, int, bool) {
	d := e.Dimension
	if d < 1 || d > 3 || f < 0 || f >= e.Shape.FaceCount() {
		return Entity{}, 0, false
	}
	if r.adjacent[d] == nil {
		adj := make(adjacency)
		for _, el := range r.elements[d] {
			for i := 0; i < el.Shape.FaceCount(); i++ {
				key := faceKey(FaceNodes(el, i))
				adj[key] = append(adj[key], faceRef{parent: el.ID, face: i})
			}
		}
		r.adjacent[d] = adj
	}
	for _, ref := range r.adjacent[d][faceKey(FaceNodes(e, f))] {
		if ref.parent != e.ID {
			return r.elements[d][ref.parent], ref.face, true
		}
	}
	return Entity{}, 0, false
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

// AddGroup registers a group under its name, replacing any previous one.
func (r *Region) AddGroup(g *Group) {
	r.groups[g.Name()] = g
}

// Group returns the named group.
func (r *Region) Group(name string) (*Group, bool) {
	g, ok := r.groups[name]
	return g, ok
}

// GroupNames returns the names of all groups in sorted order.
func (r *Region) GroupNames() []string {
	names := make([]string, 0, len(r.groups))
	for name := range r.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
