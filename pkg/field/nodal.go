package field

import (
	"slices"

	"github.com/chazu/fieldviz/pkg/domain"
)

// Nodal stores values at nodes and interpolates them over elements with
// the linear Lagrange basis.
type Nodal struct {
	Base
	values map[domain.ID]Values
	notify func(name string, node domain.ID)
}

// NewNodal returns a nodal field with no node values.
func NewNodal(name string, components int) *Nodal {
	return &Nodal{Base: NewBase(name, components), values: make(map[domain.ID]Values)}
}

// SetNodeValue assigns the value at a node. Once the field is registered
// with a manager, a changed value is reported to the manager's recorder.
func (n *Nodal) SetNodeValue(id domain.ID, v ...float64) {
	if old, ok := n.values[id]; ok && slices.Equal(old, Values(v)) {
		return
	}
	n.values[id] = append(Values(nil), v...)
	if n.notify != nil {
		n.notify(n.Name(), id)
	}
}

func (n *Nodal) notifyValues(fn func(name string, node domain.ID)) {
	n.notify = fn
}

func (n *Nodal) Evaluate(loc Location) (Values, error) {
	return interpolate(n, loc, func(id domain.ID) (Values, bool) {
		v, ok := n.values[id]
		return v, ok
	})
}

// Coordinates reads node and data point positions from a region, so it
// follows node moves without redefinition.
type Coordinates struct {
	Base
	region *domain.Region
}

// NewCoordinates returns the three-component coordinate field of r.
func NewCoordinates(name string, r *domain.Region) *Coordinates {
	return &Coordinates{Base: NewBase(name, 3), region: r}
}

func (c *Coordinates) Evaluate(loc Location) (Values, error) {
	if loc.IsDatapoint() {
		p, ok := c.region.DatapointPosition(loc.Node)
		if !ok {
			return nil, notDefined(c, loc)
		}
		return Values{p[0], p[1], p[2]}, nil
	}
	return interpolate(c, loc, func(id domain.ID) (Values, bool) {
		p, ok := c.region.NodePosition(id)
		if !ok {
			return nil, false
		}
		return Values{p[0], p[1], p[2]}, true
	})
}

// interpolate evaluates node-based values at a node or element location.
func interpolate(f Field, loc Location, at func(domain.ID) (Values, bool)) (Values, error) {
	switch {
	case loc.IsNode():
		v, ok := at(loc.Node)
		if !ok {
			return nil, notDefined(f, loc)
		}
		return append(Values(nil), v...), nil
	case loc.IsElement():
		e := loc.Element
		if len(e.Nodes) != e.Shape.NodeCount() {
			return nil, notDefined(f, loc)
		}
		w := domain.Weights(e.Shape, loc.Xi)
		out := make(Values, f.NumberOfComponents())
		for i, id := range e.Nodes {
			v, ok := at(id)
			if !ok || len(v) < len(out) {
				return nil, notDefined(f, loc)
			}
			for c := range out {
				out[c] += w[i] * v[c]
			}
		}
		return out, nil
	default:
		return nil, notDefined(f, loc)
	}
}
