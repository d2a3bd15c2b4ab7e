package domain

// Group is a named sub-domain: a set of nodes, data points and elements
// per dimension.
type Group struct {
	name       string
	nodes      map[ID]struct{}
	datapoints map[ID]struct{}
	elements   [4]map[ID]struct{}
}

// NewGroup returns an empty group.
func NewGroup(name string) *Group {
	g := &Group{name: name, nodes: make(map[ID]struct{}), datapoints: make(map[ID]struct{})}
	for d := 1; d <= 3; d++ {
		g.elements[d] = make(map[ID]struct{})
	}
	return g
}

func (g *Group) Name() string { return g.name }

func (g *Group) AddNode(id ID)    { g.nodes[id] = struct{}{} }
func (g *Group) RemoveNode(id ID) { delete(g.nodes, id) }

func (g *Group) ContainsNode(id ID) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *Group) AddDatapoint(id ID)    { g.datapoints[id] = struct{}{} }
func (g *Group) RemoveDatapoint(id ID) { delete(g.datapoints, id) }

func (g *Group) ContainsDatapoint(id ID) bool {
	_, ok := g.datapoints[id]
	return ok
}

// AddElement adds an element; invalid dimensions are ignored.
func (g *Group) AddElement(dimension int, id ID) {
	if dimension >= 1 && dimension <= 3 {
		g.elements[dimension][id] = struct{}{}
	}
}

func (g *Group) RemoveElement(dimension int, id ID) {
	if dimension >= 1 && dimension <= 3 {
		delete(g.elements[dimension], id)
	}
}

func (g *Group) ContainsElement(dimension int, id ID) bool {
	if dimension < 1 || dimension > 3 {
		return false
	}
	_, ok := g.elements[dimension][id]
	return ok
}

// Contains reports whether an iterated entity belongs to the group.
func (g *Group) Contains(e Entity) bool {
	if e.Dimension <= 0 {
		return g.ContainsNode(e.ID)
	}
	return g.ContainsElement(e.Dimension, e.ID)
}

// Size returns the number of members of a dimension; zero counts nodes.
func (g *Group) Size(dimension int) int {
	if dimension == 0 {
		return len(g.nodes)
	}
	if dimension < 1 || dimension > 3 {
		return 0
	}
	return len(g.elements[dimension])
}

// Clear removes every member.
func (g *Group) Clear() {
	g.nodes = make(map[ID]struct{})
	g.datapoints = make(map[ID]struct{})
	for d := 1; d <= 3; d++ {
		g.elements[d] = make(map[ID]struct{})
	}
}
