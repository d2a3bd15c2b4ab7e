package build

import (
	"fmt"
	"math"

	"github.com/chazu/fieldviz/pkg/domain"
	"github.com/chazu/fieldviz/pkg/field"
	"github.com/chazu/fieldviz/pkg/geometry"
	"github.com/chazu/fieldviz/pkg/graphic"
	"github.com/chazu/fieldviz/pkg/primitive"
)

// traceSpace evaluates the coordinate and stream vector fields for
// geometry.Trace.
type traceSpace struct {
	region *domain.Region
	coords field.Field
	vector field.Field
	time   float64
}

func (t *traceSpace) Position(e domain.Entity, xi [3]float64) ([3]float64, error) {
	var p [3]float64
	v, err := t.coords.Evaluate(field.AtElement(e, xi).WithTime(t.time))
	copy(p[:], v)
	return p, err
}

// Vector returns the first three components of the stream vector field.
func (t *traceSpace) Vector(e domain.Entity, xi [3]float64) ([3]float64, error) {
	var p [3]float64
	v, err := t.vector.Evaluate(field.AtElement(e, xi).WithTime(t.time))
	copy(p[:], v)
	return p, err
}

func (t *traceSpace) Neighbor(e domain.Entity, face int) (domain.Entity, int, bool) {
	return t.region.Neighbor(e, face)
}

type seed struct {
	element domain.Entity
	xi      [3]float64
}

// streamlines traces one streamline per seed over the whole domain.
func (b *builder) streamlines(store *primitive.Store) {
	sa, _ := b.s.Streamlines()
	if sa.Vector == nil {
		b.info("no stream vector field; no streamlines are drawn")
		return
	}
	space := &traceSpace{region: b.region, coords: b.coords, vector: sa.Vector, time: b.time}
	params := geometry.TraceParams{Length: sa.Length, Reverse: sa.Reverse}

	for _, sd := range b.seeds(sa) {
		b.rep.Entities++
		id := sd.element.ID
		points, err := geometry.Trace(space, sd.element, sd.xi, params)
		if err != nil {
			b.skip(id, err)
			continue
		}
		if len(points) < 2 {
			continue
		}
		verts := make([]geometry.Vertex, len(points))
		for i, p := range points {
			verts[i] = p.Vertex()
			verts[i].Data = b.streamData(sa, p)
		}

		var batch primitive.Batch
		if sa.Line.Shape.Extruded() {
			sections := make([]geometry.Section, len(points))
			for i, p := range points {
				if sections[i], err = b.section(sa.Line, field.AtElement(p.Element, p.Xi).WithTime(b.time)); err != nil {
					break
				}
			}
			if err == nil {
				batch, err = geometry.Extrusion(id, b.time, sa.Line.Shape, verts, sections, b.s.Tessellation().CircleDivisions)
			}
		} else {
			batch, err = geometry.LineSegments(id, b.time, verts)
		}
		if err != nil {
			b.skip(id, err)
			continue
		}
		if err := store.Add(batch); err != nil {
			b.skip(id, err)
		}
	}
}

// seeds returns the start points in order: the seed element when set,
// else the located nodes of the seed nodeset, else every element of the
// domain that passes the filters.
func (b *builder) seeds(sa graphic.StreamlineAttributes) []seed {
	divisions := b.s.Tessellation().Divisions
	mode := sa.Sampling
	if mode == geometry.SampleCellPoisson {
		mode = geometry.SampleCellCentres
	}
	inElement := func(e domain.Entity) []seed {
		var out []seed
		for _, xi := range geometry.SamplePoints(mode, e.Dimension, divisions, [3]float64{}, 0, 0) {
			out = append(out, seed{element: e, xi: xi})
		}
		return out
	}

	switch {
	case sa.SeedElement != nil:
		id := *sa.SeedElement
		e, ok := b.region.Element(b.dim, id)
		if !ok {
			b.skip(id, fmt.Errorf("seed element %d not in the %d-D mesh", id, b.dim))
			return nil
		}
		return inElement(e)

	case sa.SeedNodeset != nil && sa.SeedLocation != nil:
		group, _ := field.AsGroup(sa.SeedNodeset)
		locations, _ := field.AsMeshLocation(sa.SeedLocation)
		if group == nil || locations == nil {
			return nil
		}
		var out []seed
		nodes := b.region.Iterate(domain.KindNodes)
		for n, ok := nodes.Next(); ok; n, ok = nodes.Next() {
			if !group.Contains(n) {
				continue
			}
			e, xi, found := locations.Locate(n.ID)
			if !found {
				b.skip(n.ID, fmt.Errorf("node %d has no seed location", n.ID))
				continue
			}
			out = append(out, seed{element: e, xi: xi})
		}
		return out

	default:
		var out []seed
		it := domain.Filter(b.region.Iterate(b.s.Domain()), b.keep)
		for e, ok := it.Next(); ok; e, ok = it.Next() {
			out = append(out, inElement(e)...)
		}
		return out
	}
}

// streamData returns the per-vertex value chosen by the stream data type.
func (b *builder) streamData(sa graphic.StreamlineAttributes, p geometry.TracePoint) []float64 {
	switch sa.DataType {
	case geometry.StreamDataField:
		if data := b.s.DataField(); data != nil {
			if v, err := data.Evaluate(field.AtElement(p.Element, p.Xi).WithTime(b.time)); err == nil {
				return v
			}
		}
	case geometry.StreamDataMagnitude:
		v := p.Vector
		return []float64{math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])}
	case geometry.StreamDataTravelTime:
		return []float64{p.Time}
	}
	return nil
}
