package field

import "github.com/chazu/fieldviz/pkg/domain"

// Group is a boolean field reporting membership of a domain group.
type Group struct {
	Base
	group *domain.Group
}

// NewGroup wraps g as a field named after it.
func NewGroup(g *domain.Group) *Group {
	return &Group{Base: NewBase(g.Name(), 1), group: g}
}

func (g *Group) Evaluate(loc Location) (Values, error) {
	switch {
	case loc.IsElement():
		return boolValues(g.group.Contains(loc.Element)), nil
	case loc.IsNode():
		return boolValues(g.group.ContainsNode(loc.Node)), nil
	case loc.IsDatapoint():
		return boolValues(g.group.ContainsDatapoint(loc.Node)), nil
	default:
		return nil, notDefined(g, loc)
	}
}

func (g *Group) AsGroup() (GroupView, bool) {
	return g.group, true
}

// Domain returns the wrapped group.
func (g *Group) Domain() *domain.Group {
	return g.group
}

func boolValues(b bool) Values {
	if b {
		return Values{1}
	}
	return Values{0}
}

// MeshLocation stores, per node, a location inside an element. It seeds
// streamlines from a node set.
type MeshLocation struct {
	Base
	locations map[domain.ID]meshPoint
}

type meshPoint struct {
	element domain.Entity
	xi      [3]float64
}

// NewMeshLocation returns an empty mesh location field.
func NewMeshLocation(name string) *MeshLocation {
	return &MeshLocation{Base: NewBase(name, 3), locations: make(map[domain.ID]meshPoint)}
}

// Set stores the element location of a node.
func (m *MeshLocation) Set(node domain.ID, e domain.Entity, xi [3]float64) {
	m.locations[node] = meshPoint{element: e, xi: xi}
}

// Evaluate returns the stored xi at a node.
func (m *MeshLocation) Evaluate(loc Location) (Values, error) {
	if !loc.IsNode() {
		return nil, notDefined(m, loc)
	}
	p, ok := m.locations[loc.Node]
	if !ok {
		return nil, notDefined(m, loc)
	}
	return Values{p.xi[0], p.xi[1], p.xi[2]}, nil
}

func (m *MeshLocation) Locate(node domain.ID) (domain.Entity, [3]float64, bool) {
	p, ok := m.locations[node]
	return p.element, p.xi, ok
}

func (m *MeshLocation) AsMeshLocation() (MeshLocationView, bool) {
	return m, true
}
